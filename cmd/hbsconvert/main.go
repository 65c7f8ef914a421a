package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/siohaza/haxgo/internal/stadium"
)

var (
	inputDir    string
	outputDir   string
	printToml   bool
	includeBase bool
)

var rootCmd = &cobra.Command{
	Use:   "hbsconvert [files...]",
	Short: "normalize .hbs stadium files",
	Long: `hbsconvert parses stadium files, fills in every default and writes them
back in a canonical form the room accepts.`,
	Run: runConvert,
}

func init() {
	rootCmd.Flags().StringVarP(&inputDir, "input", "i", "stadiums", "Input file/directory with .hbs files")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "stadiums/normalized", "Output directory for normalized files")
	rootCmd.Flags().BoolVar(&printToml, "toml", false, "print a TOML summary of every converted stadium")
	rootCmd.Flags().BoolVar(&includeBase, "defaults", false, "also export the built-in stadiums")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// summary is what --toml prints for one stadium.
type summary struct {
	Name     string  `toml:"name"`
	File     string  `toml:"file"`
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
	Vertices int     `toml:"vertices"`
	Segments int     `toml:"segments"`
	Planes   int     `toml:"planes"`
	Goals    int     `toml:"goals"`
	Discs    int     `toml:"discs"`
	Joints   int     `toml:"joints"`
	Spawns   [2]int  `toml:"spawns"`
}

func runConvert(cmd *cobra.Command, args []string) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	files, err := getInputFiles(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get input files: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 && !includeBase {
		fmt.Fprintln(os.Stderr, "No input files found")
		os.Exit(1)
	}

	converted := 0
	skipped := 0
	failed := 0
	var summaries []summary

	write := func(label, baseName string, st *stadium.Stadium) {
		outputPath := filepath.Join(outputDir, baseName+".hbs")
		data, err := stadium.Marshal(st)
		if err != nil {
			fmt.Printf("SKIP %s: %v\n", label, err)
			skipped++
			return
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Printf("FAIL %s: %v\n", label, err)
			failed++
			return
		}
		fmt.Printf("OK   %s -> %s\n", label, filepath.Base(outputPath))
		converted++
		summaries = append(summaries, summarize(st, filepath.Base(outputPath)))
	}

	for _, file := range files {
		st, err := convertFile(file)
		if err != nil {
			fmt.Printf("SKIP %s: %v\n", filepath.Base(file), err)
			skipped++
			continue
		}
		write(filepath.Base(file), strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)), st)
	}

	if includeBase {
		for _, st := range stadium.Defaults() {
			// Built-in stadiums are not storable by default.
			exported := st.Copy()
			exported.CanBeStored = true
			write(st.Name, fileName(st.Name), exported)
		}
	}

	fmt.Printf("\nSummary: %d converted, %d skipped, %d failed\n", converted, skipped, failed)

	if printToml && len(summaries) > 0 {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(map[string][]summary{"stadium": summaries}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n%s", buf.String())
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func getInputFiles(args []string) ([]string, error) {
	var files []string

	dirs := args
	if len(dirs) == 0 {
		if _, err := os.Stat(inputDir); os.IsNotExist(err) {
			return nil, nil
		}
		dirs = []string{inputDir}
	}

	for _, arg := range dirs {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			dirFiles, err := filepath.Glob(filepath.Join(arg, "*.hbs"))
			if err != nil {
				return nil, fmt.Errorf("failed to list files in %s: %w", arg, err)
			}
			files = append(files, dirFiles...)
		} else {
			files = append(files, arg)
		}
	}

	return files, nil
}

func convertFile(filename string) (*stadium.Stadium, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	st, err := stadium.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

func summarize(st *stadium.Stadium, file string) summary {
	return summary{
		Name:     st.Name,
		File:     file,
		Width:    st.Width,
		Height:   st.Height,
		Vertices: len(st.Vertices),
		Segments: len(st.Segments),
		Planes:   len(st.Planes),
		Goals:    len(st.Goals),
		Discs:    len(st.Discs),
		Joints:   len(st.Joints),
		Spawns:   [2]int{len(st.RedSpawnPoints), len(st.BlueSpawnPoints)},
	}
}

// fileName turns a stadium name into a lowercase file name.
func fileName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

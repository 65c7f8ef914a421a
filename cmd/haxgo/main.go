package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/replay"
	"github.com/siohaza/haxgo/internal/server"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
	"github.com/siohaza/haxgo/pkg/config"
)

var (
	configPath string
	logLevel   string
	schemaOut  string
	playReplay bool
	version    = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "haxgo",
	Short: "haxgo - deterministic lockstep soccer room host",
	Long: `haxgo hosts physics soccer rooms over ENet and websocket, with Lua
room scripts, chat commands, bans and replay recording.`,
	Version: version,
	Run:     runServer,
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a room",
	Long:  "Host a room with the specified configuration",
	Run:   runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("haxgo v%s\n", version)
		fmt.Printf("wire version %d, replay format %s v%d\n", protocol.Version, replay.Magic, replay.Version)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Inspect replay files",
}

var replayInfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print the header and contents of a replay",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplayInfo,
}

var stadiumCmd = &cobra.Command{
	Use:   "stadium",
	Short: "Work with stadium files",
}

var stadiumCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Parse and validate an .hbs stadium",
	Args:  cobra.ExactArgs(1),
	RunE:  runStadiumCheck,
}

var stadiumSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Write the JSON schema of stadium files",
	RunE:  runStadiumSchema,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.toml", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")

	replayInfoCmd.Flags().BoolVar(&playReplay, "play", false, "play the replay through and report the goals")
	stadiumSchemaCmd.Flags().StringVar(&schemaOut, "out", "", "path to write the JSON schema (stdout when empty)")

	replayCmd.AddCommand(replayInfoCmd)
	stadiumCmd.AddCommand(stadiumCheckCmd, stadiumSchemaCmd)

	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(stadiumCmd)
}

// applyEnv lets a .env file or the environment override flags the user did
// not set. A missing .env file is fine.
func applyEnv(cmd *cobra.Command) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	if v := os.Getenv("HAXGO_CONFIG"); v != "" && !cmd.Flags().Changed("config") {
		configPath = v
	}
	if v := os.Getenv("HAXGO_LOG_LEVEL"); v != "" && !cmd.Flags().Changed("log-level") {
		logLevel = v
	}
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadConfig(configPath)
}

func runServer(cmd *cobra.Command, args []string) {
	applyEnv(cmd)

	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if pw := os.Getenv("HAXGO_PASSWORD"); pw != "" {
		cfg.Room.Password = pw
	}

	var logWriter io.Writer = os.Stdout
	var logFile *os.File

	if cfg.Server.LogToFile {
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
			os.Exit(1)
		}

		logPath := filepath.Join(logDir, fmt.Sprintf("haxgo_%d.log", time.Now().Unix()))
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()

		logWriter = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting haxgo", "version", version)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create room", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("failed to start room", "error", err)
		os.Exit(1)
	}

	logger.Info("room running",
		"name", cfg.Room.Name,
		"enet_port", cfg.Server.ENetPort,
		"ws_addr", cfg.Server.WSAddr,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("shutting down room")

	srv.Stop()
}

// goalCounter tallies goals while a replay plays through.
type goalCounter struct {
	callbacks.DefaultCallbacks
	goals [3]int
}

func (g *goalCounter) OnTeamGoal(t team.ID) {
	g.goals[t]++
}

func runReplayInfo(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read replay: %w", err)
	}
	info, err := replay.Inspect(data)
	if err != nil {
		return fmt.Errorf("invalid replay: %w", err)
	}

	duration := time.Duration(info.Frames) * time.Second / server.TickRate
	fmt.Printf("format:   %s v%d\n", replay.Magic, info.Version)
	fmt.Printf("frames:   %d (%s)\n", info.Frames, duration.Round(time.Second/10))
	fmt.Printf("records:  %d\n", info.Records)

	if !playReplay {
		return nil
	}
	counter := &goalCounter{}
	r, err := replay.Open(data, counter)
	if err != nil {
		return fmt.Errorf("invalid replay: %w", err)
	}
	for r.Step() {
	}
	fmt.Printf("stadium:  %s\n", r.State().Stadium.Name)
	fmt.Printf("players:  %d\n", r.State().Players.Len())
	fmt.Printf("goals:    red %d, blue %d\n", counter.goals[team.Red], counter.goals[team.Blue])
	return nil
}

func runStadiumCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read stadium: %w", err)
	}
	st, err := stadium.Parse(data)
	if err != nil {
		return fmt.Errorf("invalid stadium: %w", err)
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid stadium: %w", err)
	}
	fmt.Printf("OK   %s: %q %gx%g, %d vertices, %d segments, %d planes, %d goals, %d discs, %d joints\n",
		filepath.Base(args[0]), st.Name, st.Width, st.Height,
		len(st.Vertices), len(st.Segments), len(st.Planes), len(st.Goals), len(st.Discs), len(st.Joints))
	return nil
}

func runStadiumSchema(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(stadium.Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if schemaOut == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(schemaOut), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := schemaOut + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, schemaOut); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

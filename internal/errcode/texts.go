package errcode

const (
	englishKicked = "You were banned%[2]v by %[1]v"
	turkishKicked = "%[1]v tarafından odadan yasaklandınız%[2]v"
)

var englishTexts = map[Code]string{
	Empty:                                  "",
	ConnectionClosed:                       "Connection closed%[1]v",
	GameStateTimeout:                       "Game state timeout",
	RoomClosed:                             "The room was closed.",
	RoomFull:                               "The room is full.",
	WrongPassword:                          "Wrong password.",
	BannedBefore:                           "You are banned from this room.",
	IncompatibleVersion:                    "Incompatible game version.",
	FailedHost:                             "Failed to connect to room host.",
	Unknown:                                "An error occurred while attempting to join the room.",
	Cancelled:                              "Cancelled",
	FailedPeer:                             "Failed to connect to peer.",
	KickedNow:                              "You were kicked%[2]v by %[1]v",
	Failed:                                 "Failed",
	MasterConnectionError:                  "Master connection error",
	StadiumParseError:                      "Error in \"%[1]v\" section at index %[2]v.",
	StadiumParseSyntaxError:                "Syntax error in line %[1]v",
	StadiumParseUnknownError:               "Error loading stadium file.",
	ObjectCastError:                        "Cannot cast %[1]v to %[2]v",
	TeamColorsReadError:                    "too many",
	UTF8CharacterDecodeError:               "Cannot decode UTF8 character at offset %[1]v: charCode (%[2]v) is invalid",
	ReadTooMuchError:                       "Read too much",
	ReadWrongStringLengthError:             "Actual string length differs from the specified: %[1]v bytes",
	EncodeUTF8CharNegativeError:            "Cannot encode UTF8 character: charCode (%[1]v) is negative",
	EncodeUTF8CharTooLargeError:            "Cannot encode UTF8 character: charCode (%[1]v) is too large (>= 0x80000000)",
	CalculateLengthOfUTF8CharNegativeError: "Cannot calculate length of UTF8 character: charCode (%[1]v) is negative",
	CalculateLengthOfUTF8CharTooLargeError: "Cannot calculate length of UTF8 character: charCode (%[1]v) is too large (>= 0x80000000)",
	BufferResizeParameterTooSmallError:     "Cannot resize buffer to a capacity lower than 1",
	BadColorError:                          "Bad color",
	BadTeamError:                           "Bad team value",
	StadiumLimitsExceededError:             "Stadium limits exceeded",
	MissingActionConfigError:               "Class doesn't have a config",
	UnregisteredActionError:                "Tried to pack unregistered action",
	MissingImplementationError:             "Missing implementation",
	AnnouncementActionMessageTooLongError:  "message too long",
	ChatActionMessageTooLongError:          "message too long",
	KickBanReasonTooLongError:              "string too long",
	ChangeTeamColorsInvalidTeamIdError:     "Invalid team id",
	MissingRecaptchaCallbackError:          "Recaptcha requested but no token was configured.",
	ReplayFileVersionMismatchError:         "The replay data is of a different version (%[1]v, expected %[2]v)",
	ReplayFileReadError:                    "Couldn't load replay data.",
	JoinRoomNullIdAuthError:                "id and auth cannot be null.",
	PlayerNameTooLongError:                 "name too long",
	PlayerCountryTooLongError:              "country too long",
	PlayerAvatarTooLongError:               "avatar too long",
	PlayerJoinBlockedByMPDError:            "Player join not allowed: %[1]v %[2]v %[3]v",
	PlayerJoinBlockedByORError:             "Player join event has been blocked by operation checks: %[1]v",
	PluginNotFoundError:                    "Plugin not found at index %[1]v",
	PluginNameChangeNotAllowedError:        "Plugin name should not change",
	LibraryNotFoundError:                   "Library not found at index %[1]v",
	LibraryNameChangeNotAllowedError:       "Library name should not change",
	AuthFromKeyInvalidIdFormatError:        "Invalid id format",
	LanguageAlreadyExistsError:             "Language already exists: %[1]v",
	CurrentLanguageRemovalError:            "Current language cannot be removed. Change to a different language first.",
	LanguageDoesNotExistError:              "Language does not exist: %[1]v",
	BadActorError:                          "Bad actor",
}

var turkishTexts = map[Code]string{
	Empty:                                  "",
	ConnectionClosed:                       "Bağlantı kapatıldı%[1]v",
	GameStateTimeout:                       "Oyun durumu süre aşımı",
	RoomClosed:                             "Oda kapatıldı.",
	RoomFull:                               "Oda dolu.",
	WrongPassword:                          "Şifre yanlış.",
	BannedBefore:                           "Bu odadan yasaklanmışsınız.",
	IncompatibleVersion:                    "Uyumsuz oyun sürümü.",
	FailedHost:                             "Oda sunucusuna bağlanılamadı.",
	Unknown:                                "Odaya girerken bir problem oluştu.",
	Cancelled:                              "İptal edildi",
	FailedPeer:                             "Eşe bağlanılamadı.",
	KickedNow:                              "%[1]v tarafından odadan atıldınız%[2]v",
	Failed:                                 "Başarısız",
	MasterConnectionError:                  "Ana sunucu bağlantı hatası",
	StadiumParseError:                      "\"%[1]v\" bölümü, %[2]v konumunda hata.",
	StadiumParseSyntaxError:                "%[1]v satırında sözdizimi hatası",
	StadiumParseUnknownError:               "Stadyum dosyası açılırken hata.",
	ObjectCastError:                        "%[1]v nesnesi şu tipe dönüştürülemiyor: %[2]v",
	TeamColorsReadError:                    "Çok fazla",
	UTF8CharacterDecodeError:               "%[1]v konumundaki UTF8 karakteri çözülemedi: karakter kodu (%[2]v) geçersiz",
	ReadTooMuchError:                       "Çok fazla okundu",
	ReadWrongStringLengthError:             "Gerçek yazı uzunluğu belirtilenden farklı: %[1]v byte",
	EncodeUTF8CharNegativeError:            "UTF8 karakteri çözülemedi: karakter kodu (%[1]v) negatif",
	EncodeUTF8CharTooLargeError:            "UTF8 karakteri çözülemedi: karakter kodu (%[1]v) çok büyük (>= 0x80000000)",
	CalculateLengthOfUTF8CharNegativeError: "UTF8 karakterinin uzunluğu hesaplanamadı: karakter kodu (%[1]v) negatif",
	CalculateLengthOfUTF8CharTooLargeError: "UTF8 karakterinin uzunluğu hesaplanamadı: karakter kodu (%[1]v) çok büyük (>= 0x80000000)",
	BufferResizeParameterTooSmallError:     "Buffer 1 byte kapasitesinden küçük bir değere yeniden boyutlandırılamadı",
	BadColorError:                          "Kötü renk",
	BadTeamError:                           "Kötü takım değeri",
	StadiumLimitsExceededError:             "Hata",
	MissingActionConfigError:               "Sınıfın ayarı yok",
	UnregisteredActionError:                "Kayıtsız bir hareket paketlenmeye çalışıldı.",
	MissingImplementationError:             "Fonksiyon kodları eksik",
	AnnouncementActionMessageTooLongError:  "Mesaj çok uzun",
	ChatActionMessageTooLongError:          "Mesaj çok uzun",
	KickBanReasonTooLongError:              "Yazı çok uzun",
	ChangeTeamColorsInvalidTeamIdError:     "Geçersiz takım idsi",
	MissingRecaptchaCallbackError:          "Recaptcha talep edildi.",
	ReplayFileVersionMismatchError:         "Tekrarlama verisinin sürümü farklı (%[1]v, beklenen %[2]v)",
	ReplayFileReadError:                    "Tekrarlama verisi yüklenemedi.",
	JoinRoomNullIdAuthError:                "id ve auth null olamaz.",
	PlayerNameTooLongError:                 "İsim çok uzun",
	PlayerCountryTooLongError:              "Bayrak çok uzun",
	PlayerAvatarTooLongError:               "Avatar çok uzun",
	PlayerJoinBlockedByMPDError:            "Oyuncu girişine izin verilmedi: %[1]v %[2]v %[3]v",
	PlayerJoinBlockedByORError:             "Oyuncu giriş olayı engellendi: %[1]v",
	PluginNotFoundError:                    "%[1]v konumunda eklenti bulunamadı",
	PluginNameChangeNotAllowedError:        "Eklenti adı değişmemeli",
	LibraryNotFoundError:                   "%[1]v konumunda kütüphane bulunamadı",
	LibraryNameChangeNotAllowedError:       "Kütüphane adı değişmemeli",
	AuthFromKeyInvalidIdFormatError:        "Id formatı geçersiz",
	LanguageAlreadyExistsError:             "Dil zaten mevcut: %[1]v",
	CurrentLanguageRemovalError:            "Seçili dil silinemez. Önce başka bir dil seçiniz.",
	LanguageDoesNotExistError:              "Dil mevcut değil: %[1]v",
	BadActorError:                          "Kötü Aktör",
}

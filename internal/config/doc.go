// Package config provides the configuration system for textstore.
//
// Settings come from four sources. Each one overrides those listed
// after it:
//
//	overrides   Config.Set, fed by command line flags
//	environment TEXTSTORE_INDEX_STRIDE=512, TEXTSTORE_FILES_WATCH=on
//	file        textstore.toml or textstore.yaml
//	defaults    built in
//
// # Usage
//
//	cfg := config.New(config.WithFile("textstore.toml"))
//	if err := cfg.Load(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	settings, err := cfg.Settings()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(settings.Index.Stride)
//
// # Configuration Files
//
// TOML and YAML are both accepted; the format is chosen by extension:
//
//	[index]
//	stride = 4096
//
//	[files]
//	maxFileSize = 67108864
//	mmap = true
//	watch = true
//	debounce = "100ms"
//
//	[logging]
//	level = "info"
//
// # Error Handling
//
// Problems with a single setting are reported as *SettingError, whose
// Reason is ErrSettingNotFound, ErrWrongType, ErrOutOfRange or
// ErrUnknownValue. Settings joins every problem it finds into one error.
// A file that does not parse yields a *loader.ParseError.
package config

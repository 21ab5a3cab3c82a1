package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-tpm-crypto/pkg/logging"
	"github.com/jeremyhahn/go-tpm-crypto/pkg/tpm2"
)

// Build details injected by the linker
var (
	Name      = "tpm-crypto"
	Version   string
	GitHash   string
	BuildDate string
)

type App struct {
	ConfigDir string       `yaml:"config-dir" json:"config_dir" mapstructure:"config-dir"`
	DebugFlag bool         `yaml:"debug" json:"debug" mapstructure:"debug"`
	LogDir    string       `yaml:"log-dir" json:"log_dir" mapstructure:"log-dir"`
	TPMConfig *tpm2.Config `yaml:"tpm" json:"tpm" mapstructure:"tpm"`

	Logger *logging.Logger `yaml:"-" json:"-" mapstructure:"-"`
	FS     afero.Fs        `yaml:"-" json:"-" mapstructure:"-"`
}

type AppInitParams struct {
	ConfigDir string
	Debug     bool
	LogDir    string
}

func NewApp() *App {
	return &App{
		TPMConfig: tpm2.DefaultConfig(),
		FS:        afero.NewOsFs(),
	}
}

// Initialize the application by loading the configuration file and
// initializing the logger. CLI flags override the configuration file.
func (app *App) Init(initParams *AppInitParams) *App {
	if initParams != nil {
		app.DebugFlag = initParams.Debug
		app.ConfigDir = initParams.ConfigDir
		app.LogDir = initParams.LogDir
	}
	app.initConfig()
	app.initLogger()
	return app
}

// Read and parse the configuration file. A missing configuration file is
// not an error; the defaults apply.
func (app *App) initConfig() {

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if app.ConfigDir != "" {
		viper.AddConfigPath(app.ConfigDir)
	}
	viper.AddConfigPath(fmt.Sprintf("$HOME/.%s/", Name))
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
		return
	}

	if err := viper.Unmarshal(app); err != nil {
		panic(err)
	}
}

// Creates the file and STDOUT logger. If the debug flag is set, the
// logger is initialized in debug mode, executing all logger.Debug*
// statements.
func (app *App) initLogger() {

	level := slog.LevelError
	if app.DebugFlag {
		level = slog.LevelDebug
	}

	logFile, err := app.logFile()
	if err != nil {
		logging.DefaultLogger().FatalError(err)
	}

	app.Logger = logging.NewLogger(level, logFile)
	if app.DebugFlag {
		app.Logger.Debug("starting logger in debug mode")
		if used := viper.ConfigFileUsed(); used != "" {
			app.Logger.Debugf("using configuration file: %s", used)
		}
	}
}

func (app *App) logFile() (afero.File, error) {
	if app.LogDir == "" {
		return nil, nil
	}
	if err := app.FS.MkdirAll(app.LogDir, 0755); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("%s/%s.log", app.LogDir, Name)
	return app.FS.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// Builds the software PCR extender from the TPM configuration.
func (app *App) Extender() (*tpm2.PCRExtender, error) {
	if app.TPMConfig == nil {
		app.TPMConfig = tpm2.DefaultConfig()
	}
	return app.TPMConfig.Extender()
}

// Returns the configured credential protection digest algorithm.
func (app *App) NameAlg() (tpm2.DigestAlgorithm, error) {
	if app.TPMConfig == nil {
		app.TPMConfig = tpm2.DefaultConfig()
	}
	return app.TPMConfig.NameAlg()
}

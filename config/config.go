// Package config carries the tunables of the dashboard process. Values come
// from numerai.yaml (working directory or $NUMERAI_HOME), NUMERAI_* env
// overrides, and built-in defaults, in that order of precedence.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/romainhaenni/numerai-cli/common"
)

const (
	refreshIntervalKey       = "refresh_interval"
	activeRefreshIntervalKey = "active_refresh_interval"
	modelUpdateIntervalKey   = "model_update_interval"
	networkCheckIntervalKey  = "network_check_interval"
	networkTimeoutKey        = "network_timeout"
	autoTrainKey             = "auto_train_after_download"
	autoPredictKey           = "auto_predict_after_train"
	autoSubmitKey            = "auto_submit_after_predict"
	graceDelayKey            = "grace_delay"
	eventHistoryKey          = "event_history"
	errorHistoryKey          = "error_history"
	defaultEpochsKey         = "default_epochs"
	dataDirKey               = "data_dir"
	modelNameKey             = "model_name"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(refreshIntervalKey, time.Second)
	v.SetDefault(activeRefreshIntervalKey, 150*time.Millisecond)
	v.SetDefault(modelUpdateIntervalKey, 5*time.Minute)
	v.SetDefault(networkCheckIntervalKey, 30*time.Second)
	v.SetDefault(networkTimeoutKey, 10*time.Second)
	v.SetDefault(autoTrainKey, false)
	v.SetDefault(autoPredictKey, false)
	v.SetDefault(autoSubmitKey, false)
	v.SetDefault(graceDelayKey, 1500*time.Millisecond)
	v.SetDefault(eventHistoryKey, 50)
	v.SetDefault(errorHistoryKey, 50)
	v.SetDefault(defaultEpochsKey, 50)
	v.SetDefault(dataDirKey, common.Home())
	v.SetDefault(modelNameKey, "example_model")
}

// Config is an immutable snapshot of all settings, resolved at startup.
type Config struct {
	RefreshInterval       time.Duration
	ActiveRefreshInterval time.Duration
	ModelUpdateInterval   time.Duration
	NetworkCheckInterval  time.Duration
	NetworkTimeout        time.Duration

	AutoTrainAfterDownload bool
	AutoPredictAfterTrain  bool
	AutoSubmitAfterPredict bool
	GraceDelay             time.Duration

	EventHistory  int
	ErrorHistory  int
	DefaultEpochs int

	DataDir   string
	ModelName string
}

// Load resolves settings from the given config file (empty string means
// the default search path). A missing file is not an error, only an
// unreadable or malformed one is.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NUMERAI")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("numerai")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(common.Home())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing {
			return nil, err
		}
		common.Trace("No config file found, using defaults")
	} else {
		common.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	return &Config{
		RefreshInterval:        v.GetDuration(refreshIntervalKey),
		ActiveRefreshInterval:  v.GetDuration(activeRefreshIntervalKey),
		ModelUpdateInterval:    v.GetDuration(modelUpdateIntervalKey),
		NetworkCheckInterval:   v.GetDuration(networkCheckIntervalKey),
		NetworkTimeout:         v.GetDuration(networkTimeoutKey),
		AutoTrainAfterDownload: v.GetBool(autoTrainKey),
		AutoPredictAfterTrain:  v.GetBool(autoPredictKey),
		AutoSubmitAfterPredict: v.GetBool(autoSubmitKey),
		GraceDelay:             v.GetDuration(graceDelayKey),
		EventHistory:           v.GetInt(eventHistoryKey),
		ErrorHistory:           v.GetInt(errorHistoryKey),
		DefaultEpochs:          v.GetInt(defaultEpochsKey),
		DataDir:                v.GetString(dataDirKey),
		ModelName:              v.GetString(modelNameKey),
	}, nil
}

package params

import (
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// LoadChainConfigFile reads a yaml chain config on top of base. Keys absent
// from the file keep the value of base, unknown keys are an error.
func LoadChainConfigFile(chainConfigFileName string, base *FinalizationConfig) (*FinalizationConfig, error) {
	yamlFile, err := ioutil.ReadFile(chainConfigFileName) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chain config file")
	}
	conf := base.Copy()
	if err := yaml.UnmarshalStrict(yamlFile, conf); err != nil {
		return nil, errors.Wrap(err, "failed to parse chain config yaml file")
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid chain config")
	}
	log.Debugf("Config file values: %+v", conf)
	return conf, nil
}

package loaders

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// ShaderSetLoader decodes a `.shaderset.toml` descriptor. Data is a *metadata.ShaderSetConfig.
type ShaderSetLoader struct{}

func (sl *ShaderSetLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader set %s", path)
	}

	cfg := &metadata.ShaderSetConfig{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode shader set %s", path)
	}
	if len(cfg.Stages) == 0 {
		return nil, errors.Newf("shader set %s declares no stages", path)
	}
	for i := range cfg.Stages {
		s := &cfg.Stages[i]
		if _, err := metadata.ParseShaderStageType(s.Type); err != nil {
			return nil, errors.Wrapf(err, "shader set %s stage %d", path, i)
		}
		if s.File == "" {
			return nil, errors.Newf("shader set %s stage %d has no file", path, i)
		}
		if s.EntryPoint == "" {
			s.EntryPoint = "main"
		}
	}

	return &metadata.Resource{
		Name:     cfg.Name,
		Type:     metadata.ResourceTypeShaderSet,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     cfg,
	}, nil
}

func (sl *ShaderSetLoader) Unload(res *metadata.Resource) error {
	if res != nil {
		res.Data = nil
	}
	return nil
}

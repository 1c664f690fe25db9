package registry

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-pathcopy/pkg/pipeline"
	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

type document struct {
	Plugins []pluginEntry `yaml:"plugins"`
}

type pluginEntry struct {
	ID              string `yaml:"id"`
	Description     string `yaml:"description"`
	Elements        string `yaml:"elements"`
	RequiredVersion string `yaml:"requiredVersion,omitempty"`
	EditMode        string `yaml:"editMode,omitempty"`
	Global          bool   `yaml:"global,omitempty"`
}

func (e pluginEntry) pluginInfo() (*pipeline.PluginInfo, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPlugin, "id %q: %v", e.ID, err)
	}

	mode, err := model.ParseEditMode(e.EditMode)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin %s", id)
	}

	info := &pipeline.PluginInfo{
		ID:              id,
		Description:     e.Description,
		EncodedElements: e.Elements,
		EditMode:        mode,
		Global:          e.Global,
	}

	if e.RequiredVersion == "" {
		pipe, err := info.Pipeline()
		if err != nil {
			return nil, err
		}

		info.RequiredVersion = pipe.RequiredVersion()
	} else {
		info.RequiredVersion, err = model.ParseVersion(e.RequiredVersion)
		if err != nil {
			return nil, errors.Wrapf(err, "plugin %s", id)
		}
	}

	return info, nil
}

// Load registers the pipeline plugins of a YAML document. Plugins may reference plugins
// defined later in the document. When a plugin is rejected none of the document is kept.
func (r *Registry) Load(rd io.Reader) error {
	var doc document

	err := yaml.NewDecoder(rd).Decode(&doc)
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "unable to decode registry")
	}

	infos := make([]*pipeline.PluginInfo, len(doc.Plugins))
	pipes := make([]*pipeline.Pipeline, len(doc.Plugins))

	for i, entry := range doc.Plugins {
		infos[i], err = entry.pluginInfo()
		if err != nil {
			return errors.Wrapf(err, "plugin %d", i)
		}

		pipes[i], err = checkPipeline(infos[i])
		if err != nil {
			return errors.Wrapf(err, "plugin %d", i)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.store.Clone()

	for i, info := range infos {
		err = r.addPipeline(info, pipes[i])
		if err != nil {
			r.reset(snapshot)

			return errors.Wrapf(err, "plugin %d", i)
		}
	}

	r.logger.Debug("registry loaded", "plugins", len(doc.Plugins))

	return nil
}

// Save writes the pipeline plugins as a YAML document. Builtin plugins are not saved.
func (r *Registry) Save(wrt io.Writer) error {
	var doc document

	for _, plugin := range r.Plugins() {
		info, ok := plugin.(*pipeline.PluginInfo)
		if !ok {
			continue
		}

		doc.Plugins = append(doc.Plugins, pluginEntry{
			ID:              info.ID.String(),
			Description:     info.Description,
			Elements:        info.EncodedElements,
			RequiredVersion: info.RequiredVersion.String(),
			EditMode:        info.EditMode.String(),
			Global:          info.Global,
		})
	}

	enc := yaml.NewEncoder(wrt)
	enc.SetIndent(2)

	err := enc.Encode(doc)
	if err != nil {
		return errors.Wrap(err, "unable to encode registry")
	}

	return errors.Wrap(enc.Close(), "unable to encode registry")
}

// LoadFile loads the registry file at path. A missing file is an empty registry.
func (r *Registry) LoadFile(fs billy.Filesystem, path string) error {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return errors.Wrapf(err, "unable to read %s", path)
	}

	return errors.Wrapf(r.Load(bytes.NewReader(data)), "unable to load %s", path)
}

// SaveFile writes the registry to path, replacing it only once it is fully written.
func (r *Registry) SaveFile(fs billy.Filesystem, path string) error {
	var buf bytes.Buffer

	err := r.Save(&buf)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)

	err = fs.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", dir)
	}

	tmp, err := util.TempFile(fs, dir, ".registry-")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary registry file")
	}

	_, err = tmp.Write(buf.Bytes())
	if err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmp.Name())

		return errors.Wrap(err, "unable to write registry")
	}

	err = tmp.Close()
	if err != nil {
		_ = fs.Remove(tmp.Name())

		return errors.Wrap(err, "unable to write registry")
	}

	err = fs.Rename(tmp.Name(), path)
	if err != nil {
		_ = fs.Remove(tmp.Name())

		return errors.Wrapf(err, "unable to replace %s", path)
	}

	return nil
}

package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

const shaderSetExt = ".shaderset.toml"

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager is the IO module. It indexes the asset directory, loads shader sets for the
// renderer and, when watching, reports changed shader binaries.
type AssetManager struct {
	root      string
	shaderSet string
	watch     bool

	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	changed  chan struct{}
	events   *core.EventBus
}

func NewAssetManager(cfg core.AssetsSection) *AssetManager {
	am := &AssetManager{
		root:      filepath.Clean(cfg.ShaderDir),
		shaderSet: cfg.ShaderSet,
		watch:     cfg.Watch,
		assets:    make(map[string]AssetInfo),
		loaders:   make(map[metadata.ResourceType]Loader),
		changed:   make(chan struct{}, 1),
	}
	// Register loaders
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{RequireSpirv: true})
	am.registerLoader(metadata.ResourceTypeShaderSet, &loaders.ShaderSetLoader{})
	return am
}

func (am *AssetManager) Name() string {
	return "assets"
}

func (am *AssetManager) Type() engine.ModuleType {
	return engine.ModuleTypeIO
}

func (am *AssetManager) Initialize(ctx *engine.Context) error {
	am.events = ctx.Events

	if err := am.index(am.root); err != nil {
		return err
	}
	core.LogInfo("Asset directory %s indexed: %d assets.", am.root, am.Len())

	if !am.watch {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	am.fsnotify = w
	if err := am.watchRecursive(am.root, false); err != nil {
		_ = w.Close()
		am.fsnotify = nil
		return err
	}
	am.done = make(chan struct{})
	am.wg.Add(1)
	go am.start()
	return nil
}

func (am *AssetManager) Tick(ctx *engine.Context) error {
	return nil
}

func (am *AssetManager) Terminate(ctx *engine.Context) error {
	if am.fsnotify == nil {
		return nil
	}
	close(am.done)
	am.wg.Wait()
	am.fsnotify = nil
	return nil
}

// Len returns the number of indexed assets.
func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads an indexed asset. Shader sets are named without extension, binaries by
// their path relative to the asset directory.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	var path string
	switch resourceType {
	case metadata.ResourceTypeShaderSet:
		path = filepath.Join(am.root, name+shaderSetExt)
	case metadata.ResourceTypeBinary:
		path = filepath.Join(am.root, name)
	default:
		return nil, errors.Newf("unknown resource type %s", resourceType)
	}

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		// Update the loaded time
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, errors.Newf("asset not found: %s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(path, resourceType, params)
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	loader, ok := am.loaders[asset.Type]
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

// ShaderStages loads the configured shader set and every SPIR-V binary it lists.
func (am *AssetManager) ShaderStages() ([]metadata.ShaderStage, error) {
	res, err := am.LoadAsset(am.shaderSet, metadata.ResourceTypeShaderSet, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = am.UnloadAsset(res) }()
	set := res.Data.(*metadata.ShaderSetConfig)

	stages := make([]metadata.ShaderStage, 0, len(set.Stages))
	for _, s := range set.Stages {
		stageType, err := metadata.ParseShaderStageType(s.Type)
		if err != nil {
			return nil, err
		}
		bin, err := am.LoadAsset(s.File, metadata.ResourceTypeBinary, map[string]string{"name": set.Name + "." + s.Type})
		if err != nil {
			return nil, errors.Wrapf(err, "shader set %s", am.shaderSet)
		}
		stages = append(stages, metadata.ShaderStage{
			Type:       stageType,
			EntryPoint: s.EntryPoint,
			Code:       bin.Data.([]byte),
		})
	}
	core.LogDebug("Shader set %s loaded with %d stages.", am.shaderSet, len(stages))
	return stages, nil
}

// Changed delivers a value after a shader binary or descriptor was written. Nil when not watching.
func (am *AssetManager) Changed() <-chan struct{} {
	if !am.watch {
		return nil
	}
	return am.changed
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			_ = am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			_ = am.watchRecursive(e.Name, false)
		}
		return
	}
	// Handle create or modify events
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if am.handleFileEvent(e.Name) {
			am.notifyChanged(e.Name)
		}
	}
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
	}
}

// notifyChanged coalesces bursts of writes into a single pending notification.
func (am *AssetManager) notifyChanged(path string) {
	select {
	case am.changed <- struct{}{}:
	default:
	}
	if am.events != nil {
		am.events.Post(am, core.EventContext{Code: core.EVENT_CODE_SHADERS_CHANGED, Path: path})
	}
}

func (am *AssetManager) index(root string) error {
	return filepath.WalkDir(root, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to index %s", walkPath)
		}
		if !d.IsDir() {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return errors.Wrapf(am.fsnotify.Add(walkPath), "failed to watch %s", walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent records the creation or modification of a file. It reports whether the
// file is an asset.
func (am *AssetManager) handleFileEvent(path string) bool {
	path = filepath.Clean(path)
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) metadata.ResourceType {
	switch {
	case strings.HasSuffix(path, shaderSetExt):
		return metadata.ResourceTypeShaderSet
	case filepath.Ext(path) == ".spv":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}

var _ engine.Module = (*AssetManager)(nil)

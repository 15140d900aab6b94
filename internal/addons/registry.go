// Package addons loads compiled panel extensions and their manifests.
package addons

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ploxora/internal/errs"
	"ploxora/internal/httpx"
)

// ManifestFile is the manifest name inside an addon folder
const ManifestFile = "information.json"

// Addon statuses
const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

// SidebarItem is a navigation entry contributed by an addon
type SidebarItem struct {
	Name string `json:"name"`
	Link string `json:"link"`
	Icon string `json:"icon,omitempty"`
}

// Info describes an addon as listed by the panel
type Info struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Author      string        `json:"author"`
	Description string        `json:"description"`
	Sidebar     []SidebarItem `json:"sidebar"`
	Status      string        `json:"status"`
	Main        string        `json:"main,omitempty"`
	Folder      string        `json:"folder"`
	Loaded      bool          `json:"loaded"`
}

// Enabled reports whether the status is anything but disabled
func (i Info) Enabled() bool {
	return !strings.EqualFold(i.Status, StatusDisabled)
}

// Addon is a compiled extension
type Addon interface {
	// Info returns the default manifest, written when the folder has none.
	Info() Info
	Init() error
	Routes(r gin.IRouter)
}

// Registry tracks compiled addons and their on-disk manifests
type Registry struct {
	dir    string
	logger *logrus.Entry

	mu     sync.RWMutex
	addons map[string]Addon
	infos  map[string]Info
	loaded []string
}

// NewRegistry creates a registry reading manifests under dir
func NewRegistry(dir string, logger *logrus.Entry) *Registry {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		dir:    dir,
		logger: logger.WithField("component", "addons"),
		addons: make(map[string]Addon),
		infos:  make(map[string]Info),
	}
}

// Register adds a compiled addon served from folder
func (r *Registry) Register(folder string, a Addon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addons[folder] = a
}

// Load reads every manifest and initializes the enabled addons. Addons that
// fail to initialize are listed but not loaded.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.infos = make(map[string]Info)
	r.loaded = r.loaded[:0]

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create addons dir: %w", err)
	}

	folders := make(map[string]bool)
	for folder := range r.addons {
		folders[folder] = true
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("failed to read addons dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			folders[e.Name()] = true
		}
	}

	names := make([]string, 0, len(folders))
	for f := range folders {
		names = append(names, f)
	}
	sort.Strings(names)

	for _, folder := range names {
		info, err := r.readManifest(folder)
		if errors.Is(err, os.ErrNotExist) {
			a, ok := r.addons[folder]
			if !ok {
				continue
			}
			info = a.Info()
			info.Folder = folder
			if info.Status == "" {
				info.Status = StatusEnabled
			}
			if err := r.writeManifest(folder, func(m map[string]any) { fillManifest(m, info) }); err != nil {
				r.logger.WithError(err).Warnf("Failed to write manifest for %s", folder)
			}
		} else if err != nil {
			r.logger.WithError(err).Errorf("Failed to load addon %q", folder)
			continue
		}

		a, compiled := r.addons[folder]
		if !compiled {
			r.logger.Warnf("Addon %q has a manifest but is not compiled in", folder)
		} else if info.Enabled() {
			if err := a.Init(); err != nil {
				r.logger.WithError(err).Errorf("Failed to initialize addon %q", folder)
			} else {
				info.Loaded = true
				r.loaded = append(r.loaded, folder)
				r.logger.Infof("Loaded addon: %s v%s", info.Name, info.Version)
			}
		}
		r.infos[folder] = info
	}
	return nil
}

// Mount attaches the routes of every loaded addon behind its gate
func (r *Registry) Mount(router gin.IRouter, middleware ...gin.HandlerFunc) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, folder := range r.loaded {
		handlers := append([]gin.HandlerFunc{r.Gate(folder)}, middleware...)
		r.addons[folder].Routes(router.Group("", handlers...))
	}
}

// Gate answers 404 while the addon is disabled
func (r *Registry) Gate(folder string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r.mu.RLock()
		info, ok := r.infos[folder]
		r.mu.RUnlock()
		if !ok || !info.Enabled() {
			httpx.FailErr(c, httpx.ErrNotFound("addon disabled"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// All lists every known addon
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	return out
}

// Loaded lists the addons initialized at startup
func (r *Registry) Loaded() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.loaded))
	for _, folder := range r.loaded {
		out = append(out, r.infos[folder])
	}
	return out
}

// Enable marks an addon enabled in its manifest
func (r *Registry) Enable(folder string) (Info, error) {
	return r.setStatus(folder, StatusEnabled)
}

// Disable marks an addon disabled in its manifest
func (r *Registry) Disable(folder string) (Info, error) {
	return r.setStatus(folder, StatusDisabled)
}

func (r *Registry) setStatus(folder, status string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.infos[folder]
	if !ok || !validFolder(folder) {
		return Info{}, fmt.Errorf("addon %q: %w", folder, errs.ErrNotFound)
	}
	if err := r.writeManifest(folder, func(m map[string]any) { m["status"] = status }); err != nil {
		return Info{}, err
	}
	info.Status = status
	r.infos[folder] = info
	r.logger.Infof("Addon %s %s", folder, status)
	return info, nil
}

func (r *Registry) manifestPath(folder string) string {
	return filepath.Join(r.dir, folder, ManifestFile)
}

func (r *Registry) readManifest(folder string) (Info, error) {
	data, err := os.ReadFile(r.manifestPath(folder))
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("invalid %s: %w", ManifestFile, err)
	}
	info.Folder = folder
	info.Loaded = false
	if info.Status == "" {
		info.Status = StatusEnabled
	}
	if info.Sidebar == nil {
		info.Sidebar = []SidebarItem{}
	}
	return info, nil
}

// writeManifest rewrites the manifest keeping fields the panel does not know about
func (r *Registry) writeManifest(folder string, mutate func(m map[string]any)) error {
	path := r.manifestPath(folder)
	m := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("invalid %s: %w", ManifestFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	mutate(m)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fillManifest(m map[string]any, info Info) {
	m["name"] = info.Name
	m["version"] = info.Version
	m["author"] = info.Author
	m["description"] = info.Description
	m["sidebar"] = info.Sidebar
	m["status"] = info.Status
	if info.Main != "" {
		m["main"] = info.Main
	}
}

func validFolder(folder string) bool {
	return folder != "" && folder != "." && folder != ".." && !strings.ContainsAny(folder, `/\`)
}

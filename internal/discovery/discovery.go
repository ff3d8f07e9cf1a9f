package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/nholik/status-sentinel/internal/config"
)

// Service is a monitored service found under the services root.
type Service struct {
	Name       string
	Dir        string
	ProbePath  string
	ConfigPath string
}

// Discover returns the immediate subdirectories of root holding both an executable
// probe named probeName and a service config file, sorted by name.
// A missing root yields no services.
func Discover(root, probeName string) ([]Service, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read services dir: %w", err)
	}

	services := make([]Service, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, entry.Name())

		probePath := filepath.Join(dir, probeName)
		if !isExecutable(probePath) {
			continue
		}
		configPath, ok := findConfig(dir)
		if !ok {
			continue
		}

		services = append(services, Service{
			Name:       entry.Name(),
			Dir:        dir,
			ProbePath:  probePath,
			ConfigPath: configPath,
		})
	}

	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	return services, nil
}

// Names returns the service names in order.
func Names(services []Service) []string {
	names := make([]string, len(services))
	for i, svc := range services {
		names[i] = svc.Name
	}
	return names
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func findConfig(dir string) (string, bool) {
	for _, name := range config.ServiceConfigNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

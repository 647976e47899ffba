package shared

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-plugin"
	"github.com/spf13/pflag"

	"github.com/solguard-dev/solguard/pkg/shared/config"
	"github.com/solguard-dev/solguard/pkg/shared/logger"
)

const PluginTypeEngine string = "engine"

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SOLGUARD",
	MagicCookieValue: "f3a1c7de09b2584c6f1d2eab774c90d15a38b6e2",
}

var PluginMap = map[string]plugin.Plugin{
	PluginTypeEngine: &EnginePlugin{},
}

func GetSolguardHome() string {
	envHome := os.Getenv("SOLGUARD_HOME")
	if envHome != "" {
		return envHome
	}
	home, err := os.UserHomeDir()
	if err != nil {
		panic("unable to get home folder")
	}
	return filepath.Join(home, ".solguard")
}

// HasFlags reports whether any flag in the set was changed from its default.
func HasFlags(flags *pflag.FlagSet) bool {
	changed := false
	flags.Visit(func(*pflag.Flag) { changed = true })
	return changed
}

func GetPluginsFolder() string {
	envPlugins := os.Getenv("SOLGUARD_PLUGINS_FOLDER")
	if envPlugins != "" {
		return envPlugins
	}
	return filepath.Join(GetSolguardHome(), "plugins")
}

// OpenEngine starts the named engine plugin binary from the plugins folder
// and dispenses its RPC client. The returned close function kills the plugin
// process and must be called when the engine is no longer needed.
func OpenEngine(cfg *config.Config, loggerName string, engineName string) (Engine, func(), error) {
	log := logger.NewLogger(cfg, loggerName)

	pluginPath := filepath.Join(GetPluginsFolder(), engineName)
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(pluginPath),
		Logger:          log,
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to start engine plugin %q: %w", engineName, err)
	}

	raw, err := rpcClient.Dispense(PluginTypeEngine)
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to dispense engine plugin %q: %w", engineName, err)
	}

	eng, ok := raw.(Engine)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("plugin %q does not implement the engine contract", engineName)
	}
	return eng, client.Kill, nil
}

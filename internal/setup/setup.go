// Package setup implements the --setup installer: it copies the binary into
// place, writes a config file and registers the agent with the service
// manager so it is restarted on failure.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/pinty-monitor/agent/internal/autostart"
	"github.com/pinty-monitor/agent/internal/config"
)

// Options holds the CLI flags passed to --setup.
type Options struct {
	Mode     string // "system", "user", or "" (interactive)
	URL      string // Report endpoint or "" (interactive)
	ServerID string // Server identifier or "" (interactive)
	Secret   string // Shared secret or "" (interactive)
}

// Run executes the setup wizard. Values missing from opts are prompted for.
func Run(version string, opts Options) error {
	return run(version, opts, os.Stdin, os.Stdout, autostart.NewWithMode)
}

func run(version string, opts Options, in io.Reader, out io.Writer, newManager func(autostart.Mode) autostart.Manager) error {
	fmt.Fprintf(out, "\nPinty Agent Setup %s\n", version)
	fmt.Fprintln(out, strings.Repeat("─", 30))
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)

	mode, err := resolveMode(opts.Mode, reader, out)
	if err != nil {
		return err
	}
	if err := CheckElevation(mode); err != nil {
		return err
	}
	paths := ResolvePaths(mode)

	url, err := resolveValue(opts.URL, "Report URL", config.DefaultConfig().Server.URL, reader, out)
	if err != nil {
		return err
	}
	serverID, err := resolveValue(opts.ServerID, "Server ID", "", reader, out)
	if err != nil {
		return err
	}
	secret, err := resolveSecret(opts.Secret, in, reader, out)
	if err != nil {
		return err
	}

	cfg := buildConfig(paths, url, serverID, secret)
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nInstalling...")

	autostartMode := autostart.SystemMode
	if mode == ModeUser {
		autostartMode = autostart.UserMode
	}
	mgr := newManager(autostartMode)
	// A running agent holds the binary open; stop it before copying over it.
	if err := removeExisting(mgr, out); err != nil {
		return err
	}

	for _, dir := range []string{paths.BinDir, paths.ConfigDir, paths.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		fmt.Fprintf(out, "  ✓ Created %s\n", dir)
	}

	if err := copyBinary(paths.BinPath, out); err != nil {
		return fmt.Errorf("copying binary: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Copied binary → %s\n", paths.BinPath)

	if err := config.WriteConfig(cfg, paths.ConfigPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Written config → %s\n", paths.ConfigPath)

	target := autostart.Target{
		ExecPath:   paths.BinPath,
		ConfigPath: paths.ConfigPath,
		DataDir:    paths.DataDir,
	}
	if err := mgr.Install(target); err != nil {
		return fmt.Errorf("registering service: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Registered service (%s)\n", mgr.ServiceName())

	fmt.Fprintln(out, "\nDone! Agent is running.")
	return nil
}

// Uninstall removes the service registered by a previous --setup.
func Uninstall(modeFlag string) error {
	return uninstall(modeFlag, os.Stdout, autostart.NewWithMode)
}

func uninstall(modeFlag string, out io.Writer, newManager func(autostart.Mode) autostart.Manager) error {
	mode := ModeSystem
	if modeFlag != "" {
		m, err := ParseMode(modeFlag)
		if err != nil {
			return err
		}
		mode = m
	}
	if err := CheckElevation(mode); err != nil {
		return err
	}

	autostartMode := autostart.SystemMode
	if mode == ModeUser {
		autostartMode = autostart.UserMode
	}
	mgr := newManager(autostartMode)
	installed, err := mgr.IsInstalled()
	if err != nil {
		return fmt.Errorf("checking service: %w", err)
	}
	if !installed {
		fmt.Fprintf(out, "Service %s is not installed (%s mode)\n", mgr.ServiceName(), mode)
		return nil
	}
	if err := mgr.Uninstall(); err != nil {
		return fmt.Errorf("removing service: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Removed service (%s)\n", mgr.ServiceName())
	return nil
}

// removeExisting unregisters a service left by an earlier setup so the
// following Install starts from a clean slate.
func removeExisting(mgr autostart.Manager, out io.Writer) error {
	installed, err := mgr.IsInstalled()
	if err != nil {
		return fmt.Errorf("checking existing service: %w", err)
	}
	if !installed {
		return nil
	}
	if err := mgr.Uninstall(); err != nil {
		return fmt.Errorf("removing existing service: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Removed previous service (%s)\n", mgr.ServiceName())
	return nil
}

// buildConfig returns the config written by setup. The marker and log file
// live in the data directory, which stays writable under the service sandbox.
func buildConfig(paths Paths, url, serverID, secret string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.URL = url
	cfg.Server.ServerID = serverID
	cfg.Server.Secret = secret
	cfg.State.MarkerDir = paths.DataDir
	cfg.Logging.File = filepath.Join(paths.DataDir, "agent.log")
	return cfg
}

// copyBinary copies the current executable to the target path.
func copyBinary(dst string, out io.Writer) error {
	src, err := os.Executable()
	if err != nil {
		return err
	}
	src, err = filepath.Abs(filepath.Clean(src))
	if err != nil {
		return err
	}
	dst, err = filepath.Abs(filepath.Clean(dst))
	if err != nil {
		return err
	}
	if src == dst {
		fmt.Fprintln(out, "  (binary already in place)")
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resolveMode determines the install mode from flag or interactive prompt.
func resolveMode(flagValue string, reader *bufio.Reader, out io.Writer) (InstallMode, error) {
	if flagValue != "" {
		return ParseMode(flagValue)
	}
	fmt.Fprintln(out, "Installation mode:")
	fmt.Fprintln(out, "  [1] System (per-machine), requires root/admin")
	fmt.Fprintln(out, "  [2] User (per-user), current user only")
	fmt.Fprint(out, "> ")
	choice, _ := reader.ReadString('\n')
	switch strings.TrimSpace(choice) {
	case "1":
		return ModeSystem, nil
	case "2":
		return ModeUser, nil
	default:
		return 0, fmt.Errorf("invalid choice %q", strings.TrimSpace(choice))
	}
}

// resolveValue gets a value from flag or interactive prompt.
func resolveValue(flagValue, prompt, defaultVal string, reader *bufio.Reader, out io.Writer) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", prompt)
	}
	val, err := reader.ReadString('\n')
	val = strings.TrimSpace(val)
	if val == "" {
		if defaultVal == "" && err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
		}
		return defaultVal, nil
	}
	return val, nil
}

// resolveSecret prompts without echo when in is a terminal.
func resolveSecret(flagValue string, in io.Reader, reader *bufio.Reader, out io.Writer) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return resolveValue("", "Secret", "", reader, out)
	}
	fmt.Fprint(out, "Secret: ")
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

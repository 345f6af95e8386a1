// Package doctor runs readiness diagnostics for config, controllers, the command
// channel, external tools, audio, and the speech service.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Jagadish0216/Humanised-Robot/internal/audio"
	"github.com/Jagadish0216/Humanised-Robot/internal/config"
	"github.com/Jagadish0216/Humanised-Robot/internal/extcmd"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes every check for a loaded config. Optional features that are not
// configured are skipped rather than failed.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks,
		checkLink("motors", cfg.Motors),
		checkLink("arms", cfg.Arms),
		checkChannel(cfg.Channel.Path),
	)

	for _, named := range config.Commands(cfg) {
		if len(named.Command.Argv) == 0 {
			continue
		}
		checks = append(checks, checkCommand(named.Command.Argv, named.Key))
	}

	if len(cfg.Speech.TranscribeCmd.Argv) > 0 {
		checks = append(checks, checkAudioSelection(ctx, cfg))
	}
	if strings.TrimSpace(cfg.Speech.HealthGRPC) != "" {
		checks = append(checks, checkSpeechHealth(ctx, cfg.Speech.HealthGRPC))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

// checkLink looks for the first candidate device node. Only a required controller
// fails when none exists.
func checkLink(name string, cfg config.LinkConfig) Check {
	checkName := name + ".serial"
	if len(cfg.Devices) == 0 {
		return Check{Name: checkName, Pass: !cfg.Required, Message: "no devices configured"}
	}

	var missing []string
	for _, device := range cfg.Devices {
		info, err := os.Stat(device)
		if err != nil {
			missing = append(missing, device)
			continue
		}
		if info.Mode()&os.ModeCharDevice == 0 {
			missing = append(missing, device+" (not a character device)")
			continue
		}
		return Check{Name: checkName, Pass: true, Message: fmt.Sprintf("found %s at %d baud", device, cfg.Baud)}
	}

	msg := "no candidate device present: " + strings.Join(missing, ", ")
	if !cfg.Required {
		msg += "; controller is optional"
	}
	return Check{Name: checkName, Pass: !cfg.Required, Message: msg}
}

func checkChannel(path string) Check {
	if ipc.IsPipe(path) {
		return Check{Name: "channel", Pass: true, Message: fmt.Sprintf("named pipe ready at %s", path)}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Check{Name: "channel", Pass: true, Message: fmt.Sprintf("%s will be created on start", path)}
	}
	return Check{Name: "channel", Pass: false, Message: fmt.Sprintf("%s exists and is not a named pipe", path)}
}

// checkCommand validates that argv names a binary on PATH.
func checkCommand(argv []string, name string) Check {
	if err := extcmd.Available(argv); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is available", argv[0])}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Listen.Input, cfg.Listen.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkSpeechHealth queries grpc.health.v1 on the recognizer service.
func checkSpeechHealth(ctx context.Context, target string) Check {
	const name = "speech.health"

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("dial %s: %v", target, err)}
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("health check %s: %v", target, err)}
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s reports %s", target, resp.GetStatus())}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("serving at %s", target)}
}

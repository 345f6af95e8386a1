package doctor

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/Jagadish0216/Humanised-Robot/internal/config"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckLink(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "ttyACM9")
	regular := filepath.Join(t.TempDir(), "ttyUSB9")
	require.NoError(t, os.WriteFile(regular, nil, 0o600))

	tests := []struct {
		name     string
		cfg      config.LinkConfig
		pass     bool
		contains string
	}{
		{"optional missing", config.LinkConfig{Devices: []string{missing}}, true, "controller is optional"},
		{"required missing", config.LinkConfig{Devices: []string{missing}, Required: true}, false, missing},
		{"regular file", config.LinkConfig{Devices: []string{regular}, Required: true}, false, "not a character device"},
		{"none configured", config.LinkConfig{}, true, "no devices configured"},
		{"char device", config.LinkConfig{Devices: []string{missing, "/dev/null"}, Baud: 9600, Required: true}, true, "found /dev/null at 9600 baud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := checkLink("arms", tt.cfg)
			require.Equal(t, "arms.serial", check.Name)
			require.Equal(t, tt.pass, check.Pass)
			require.Contains(t, check.Message, tt.contains)
		})
	}
}

func TestCheckChannel(t *testing.T) {
	dir := t.TempDir()

	absent := checkChannel(filepath.Join(dir, "missing"))
	require.True(t, absent.Pass)
	require.Contains(t, absent.Message, "will be created")

	pipe := filepath.Join(dir, "arm_commands")
	_, err := ipc.EnsureExists(pipe)
	require.NoError(t, err)
	ready := checkChannel(pipe)
	require.True(t, ready.Pass)
	require.Contains(t, ready.Message, "named pipe ready")

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	bad := checkChannel(file)
	require.False(t, bad.Pass)
	require.Contains(t, bad.Message, "not a named pipe")
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-stt")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-stt", "--model", "tiny"}, "speech.transcribe_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "fake-stt is available")

	missing := checkCommand([]string{"definitely-not-a-real-binary"}, "tts.synth_cmd")
	require.False(t, missing.Pass)
	require.Equal(t, "tts.synth_cmd", missing.Name)
}

func startHealthServer(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", status)
	healthpb.RegisterHealthServer(server, hs)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	return lis.Addr().String()
}

func TestCheckSpeechHealthServing(t *testing.T) {
	addr := startHealthServer(t, healthpb.HealthCheckResponse_SERVING)

	check := checkSpeechHealth(context.Background(), addr)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "serving at "+addr)
}

func TestCheckSpeechHealthNotServing(t *testing.T) {
	addr := startHealthServer(t, healthpb.HealthCheckResponse_NOT_SERVING)

	check := checkSpeechHealth(context.Background(), addr)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "NOT_SERVING")
}

func TestCheckSpeechHealthUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	check := checkSpeechHealth(context.Background(), addr)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "health check")
}

func TestRunSkipsUnconfiguredFeatures(t *testing.T) {
	cfg := config.Default()
	cfg.Motors.Devices = nil
	cfg.Arms.Devices = []string{"/dev/null"}
	cfg.Channel.Path = filepath.Join(t.TempDir(), "arm_commands")
	cfg.TTS.SynthCmd = config.CommandConfig{}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/none.yaml", Config: cfg})
	require.True(t, report.OK(), report.String())

	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{"config", "motors.serial", "arms.serial", "channel"}, names)
	require.Contains(t, report.String(), "using defaults")
}

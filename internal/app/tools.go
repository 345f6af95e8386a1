package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jagadish0216/Humanised-Robot/internal/audio"
	"github.com/Jagadish0216/Humanised-Robot/internal/command"
	"github.com/Jagadish0216/Humanised-Robot/internal/config"
	"github.com/Jagadish0216/Humanised-Robot/internal/doctor"
	"github.com/Jagadish0216/Humanised-Robot/internal/ipc"
)

var errDoctorFailed = errors.New("doctor found failing checks")

// commandSend writes one command to the channel the gesture process reads.
func (r Runner) commandSend(ctx context.Context, configPath string, raw string) error {
	c, err := command.Parse(raw)
	if err != nil {
		return usagef("%v", err)
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ch := loaded.Config.Channel
	if !ipc.IsPipe(ch.Path) {
		return fmt.Errorf("%w: %s is not a named pipe; is the gesture process running?", ipc.ErrChannel, ch.Path)
	}

	writeCtx, cancel := context.WithTimeout(ctx, ch.WriteTimeout)
	defer cancel()
	if err := ipc.Write(writeCtx, ch.Path, c); err != nil {
		return err
	}
	fmt.Fprintf(r.Stdout, "sent %s to %s\n", c.Symbol(), ch.Path)
	return nil
}

func (r Runner) commandDoctor(ctx context.Context, configPath string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	report := doctor.Run(ctx, loaded)
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return errDoctorFailed
	}
	return nil
}

func (r Runner) commandDevices(ctx context.Context) error {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no audio devices found")
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}
	return nil
}

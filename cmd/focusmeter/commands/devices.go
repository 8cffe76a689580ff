package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petems/focusmeter/internal/audio"
	"github.com/petems/focusmeter/internal/config"
	"github.com/petems/focusmeter/internal/engine"
)

var selectDeviceName string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `List the audio input devices PortAudio can open.

Use --select with one of the listed names to record from a device other
than the system default, or --select default to go back to it. The choice
is stored as "audio.device_id" in config.json.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		capture, err := audio.New(log)
		if err != nil {
			return err
		}
		defer capture.Close()

		e := engine.New(engine.Config{Capture: capture, Audio: cfg.Audio, Logger: log})
		devices, err := e.ListDevices()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if cmd.Flags().Changed("select") {
			if err := selectDevice(cfg, devices, selectDeviceName); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Selected:"), ValueStyle.Render(deviceLabel(cfg.Audio.DeviceID)))
			return nil
		}

		if len(devices) == 0 {
			fmt.Fprintln(w, "No input devices found")
			return nil
		}
		for _, d := range devices {
			marker := " "
			switch {
			case cfg.Audio.DeviceID != "" && d.ID == cfg.Audio.DeviceID:
				marker = "*"
			case cfg.Audio.DeviceID == "" && d.Default:
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s %s\n", marker, ValueStyle.Render(d.Name), KeyStyle.Render(fmt.Sprintf("(%d ch)", d.Channels)))
		}
		return nil
	},
}

// selectDevice stores name as the configured input device. "default" or an
// empty name clears the choice; any other name must be a listed device.
func selectDevice(cfg *config.Config, devices []audio.AudioDevice, name string) error {
	if name == "default" {
		name = ""
	}
	if name != "" {
		found := false
		for _, d := range devices {
			if d.ID == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown input device %q; run \"focusmeter devices\" to list them", name)
		}
	}

	cfg.Audio.DeviceID = name
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func deviceLabel(id string) string {
	if id == "" {
		return "system default"
	}
	return id
}

func init() {
	devicesCmd.Flags().StringVar(&selectDeviceName, "select", "", "store this device in config.json (\"default\" clears it)")
	rootCmd.AddCommand(devicesCmd)
}

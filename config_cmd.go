package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# TTS engine: edge, gtts, piper, polly or google
engine: "gtts"
# largest piece of text sent to the engine in one request, 100 to 5000
chunk_size: 5000
# glamour style for the chapters command: auto, dark, light, notty or a JSON path
style: "auto"

output:
  # generated chapters and merged audiobooks end up here
  dir: "~/audiobooks"

voice_match:
  # offer a reference sample upload and level output to its loudness
  enabled: false

edge:
  binary: "edge-tts"
  voice: "en-US-AriaNeural"

gtts:
  language: "en"
  requests_per_minute: 50

piper:
  binary: "piper"
  # model: "~/.local/share/piper/models/en_US-amy-medium.onnx"
  # config: "~/.local/share/piper/models/en_US-amy-medium.onnx.json"
  speaker: 0
  # words per minute, 150 to 250
  rate: 180

polly:
  region: "us-east-1"
  voice: "Joanna"
  engine: "neural"
  # words per minute, 150 to 250
  rate: 180

google:
  language_code: "en-US"
  voice_name: "en-US-Standard-C"
  # credentials_file: "~/.config/gcloud/bookvoice.json"
  # words per minute, 150 to 250
  rate: 180

# synthesized chunks are reused across runs
cache:
  enabled: true
  memory_mb: 64
  disk_mb: 1024
  ttl_days: 7

server:
  host: "127.0.0.1"
  port: 8080
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the bookvoice config file",
	Long:    paragraph(fmt.Sprintf("\n%s the bookvoice config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("bookvoice config\nbookvoice config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("bookvoice", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

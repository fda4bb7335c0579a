// Package appconfig owns the dialer application's config.json: its
// defaults, loading with comment tolerance, recursive merging over
// defaults, and atomic persistence.
//
// The dialer itself reads this file at startup; dialer-setup creates and
// upgrades it. Merging happens section by section so a config written by
// an older version gains newly introduced keys with their defaults instead
// of breaking.
//
// Files may contain // and /* */ comments: users annotate their account
// entries, and the dialer's JSON parser never sees them because
// github.com/tidwall/jsonc strips comments before decoding.
package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// DefaultPath is where the dialer looks for its configuration.
const DefaultPath = "config.json"

// defaultAccountCount is how many SIP accounts the default config
// provisions.
const defaultAccountCount = 2

// AccountConfig holds one SIP account's registration and automation
// settings. Field names mirror the keys the dialer reads.
type AccountConfig struct {
	Enabled      bool   `json:"enabled"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Domain       string `json:"domain"`
	Port         int    `json:"port"`
	Transport    string `json:"transport"`
	Proxy        string `json:"proxy"`
	DisplayName  string `json:"display_name"`
	AutoRegister bool   `json:"auto_register"`

	// Audio device ids; -1 selects the system default device.
	AudioInputDeviceID  int `json:"audio_input_device_id"`
	AudioOutputDeviceID int `json:"audio_output_device_id"`

	// Emulator pairing for the account's WhatsApp automation.
	EmulatorPort int    `json:"emulator_port"`
	EmulatorAVD  string `json:"emulator_avd"`

	// Screen coordinates and delays for the scripted call taps. These
	// assume the 1080x2400 display the AVDs are tuned to.
	WhatsAppTapX       int `json:"whatsapp_tap_x"`
	WhatsAppTapY       int `json:"whatsapp_tap_y"`
	WhatsAppTapDelayMs int `json:"whatsapp_tap_delay_ms"`
	WhatsAppStep1X     int `json:"whatsapp_step1_x"`
	WhatsAppStep1Y     int `json:"whatsapp_step1_y"`
	WhatsAppStepDelay  int `json:"whatsapp_step_delay_ms"`
	WhatsAppStep2X     int `json:"whatsapp_step2_x"`
	WhatsAppStep2Y     int `json:"whatsapp_step2_y"`
	WhatsAppStep3X     int `json:"whatsapp_step3_x"`
	WhatsAppStep3Y     int `json:"whatsapp_step3_y"`
	WhatsAppStep3Delay int `json:"whatsapp_step3_delay_ms"`
}

// AudioConfig holds global audio processing settings.
type AudioConfig struct {
	InputDevice      int  `json:"input_device"`
	OutputDevice     int  `json:"output_device"`
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
	AutoGain         bool `json:"auto_gain"`
	InputVolume      int  `json:"input_volume"`
	OutputVolume     int  `json:"output_volume"`
}

// GeneralConfig holds application-wide behavior settings.
type GeneralConfig struct {
	AutoAnswer      bool   `json:"auto_answer"`
	AutoAnswerDelay int    `json:"auto_answer_delay"`
	CallRecording   bool   `json:"call_recording"`
	RecordingPath   string `json:"recording_path"`
	LogLevel        string `json:"log_level"`
	StartupMinimize bool   `json:"startup_minimize"`
	SystemTray      bool   `json:"system_tray"`
}

// CodecConfig holds codec negotiation preferences.
type CodecConfig struct {
	Priority  []string `json:"priority"`
	Bandwidth string   `json:"bandwidth"`
}

// GUIConfig holds window preferences the dialer applies at startup.
type GUIConfig struct {
	Theme            string `json:"theme"`
	WindowSize       string `json:"window_size"`
	AlwaysOnTop      bool   `json:"always_on_top"`
	ShowCallDuration bool   `json:"show_call_duration"`
	ShowAccountStats bool   `json:"show_account_status"`
}

// AppConfig is the full dialer configuration.
type AppConfig struct {
	Accounts map[string]AccountConfig `json:"accounts"`
	Audio    AudioConfig              `json:"audio"`
	General  GeneralConfig            `json:"general"`
	Codecs   CodecConfig              `json:"codecs"`
	GUI      GUIConfig                `json:"gui"`
}

// Default returns the built-in configuration: two locally-numbered SIP
// accounts with placeholder credentials, paired to consecutive emulator
// ports, plus the audio/general/codec/gui defaults the dialer ships with.
func Default() *AppConfig {
	accounts := make(map[string]AccountConfig, defaultAccountCount)
	for i := 1; i <= defaultAccountCount; i++ {
		accounts[strconv.Itoa(i)] = defaultAccount(i)
	}

	return &AppConfig{
		Accounts: accounts,
		Audio: AudioConfig{
			InputDevice:      -1,
			OutputDevice:     -1,
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGain:         true,
			InputVolume:      80,
			OutputVolume:     80,
		},
		General: GeneralConfig{
			AutoAnswer:      false,
			AutoAnswerDelay: 3,
			CallRecording:   false,
			RecordingPath:   "recordings",
			LogLevel:        "INFO",
			StartupMinimize: false,
			SystemTray:      true,
		},
		Codecs: CodecConfig{
			Priority:  []string{"PCMU", "PCMA", "G722", "G729", "GSM", "SPEEX"},
			Bandwidth: "normal",
		},
		GUI: GUIConfig{
			Theme:            "default",
			WindowSize:       "1200x800",
			AlwaysOnTop:      false,
			ShowCallDuration: true,
			ShowAccountStats: true,
		},
	}
}

// defaultAccount builds the default settings for the nth account.
// Emulator console ports advance in steps of two from 5554.
func defaultAccount(index int) AccountConfig {
	return AccountConfig{
		Enabled:             true,
		Username:            fmt.Sprintf("ACCOUNT%02d", index),
		Password:            "changeme",
		Domain:              "sip.example.com",
		Port:                5060,
		Transport:           "UDP",
		DisplayName:         fmt.Sprintf("Account %d", index),
		AutoRegister:        true,
		AudioInputDeviceID:  -1,
		AudioOutputDeviceID: -1,
		EmulatorPort:        5554 + (index-1)*2,
		EmulatorAVD:         fmt.Sprintf("SipDialer_Account_%d", index),
		WhatsAppTapX:        230,
		WhatsAppTapY:        130,
		WhatsAppTapDelayMs:  1200,
		WhatsAppStep1X:      230,
		WhatsAppStep1Y:      130,
		WhatsAppStepDelay:   800,
		WhatsAppStep2X:      130,
		WhatsAppStep2Y:      800,
		WhatsAppStep3X:      590,
		WhatsAppStep3Y:      980,
		WhatsAppStep3Delay:  1500,
	}
}

// Load reads the config file at path (DefaultPath when empty) and merges
// it over the defaults.
//
// A missing file is not an error: the defaults are written back so the
// dialer finds a complete config on its first start, matching how the
// application itself behaves.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if saveErr := cfg.Save(path); saveErr != nil {
				return nil, saveErr
			}
			return cfg, nil
		}
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read %s", path), err)
	}

	if err := cfg.merge(jsonc.ToJSON(data)); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse %s", path), err)
	}
	return cfg, nil
}

// merge overlays the given JSON document (comments already stripped) onto
// the config. Sections merge key-wise; account entries merge field-wise
// over the matching default (or a fresh per-index default for accounts
// beyond the built-in two), so partial entries never zero out settings
// they did not mention.
func (c *AppConfig) merge(data []byte) error {
	var raw struct {
		Accounts map[string]json.RawMessage `json:"accounts"`
		Audio    json.RawMessage            `json:"audio"`
		General  json.RawMessage            `json:"general"`
		Codecs   json.RawMessage            `json:"codecs"`
		GUI      json.RawMessage            `json:"gui"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	sections := []struct {
		raw  json.RawMessage
		into any
	}{
		{raw.Audio, &c.Audio},
		{raw.General, &c.General},
		{raw.Codecs, &c.Codecs},
		{raw.GUI, &c.GUI},
	}
	for _, s := range sections {
		if len(s.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(s.raw, s.into); err != nil {
			return err
		}
	}

	for key, rawAccount := range raw.Accounts {
		base, ok := c.Accounts[key]
		if !ok {
			index := len(c.Accounts) + 1
			if n, err := strconv.Atoi(key); err == nil && n > 0 {
				index = n
			}
			base = defaultAccount(index)
		}
		if err := json.Unmarshal(rawAccount, &base); err != nil {
			return fmt.Errorf("account %q: %w", key, err)
		}
		c.Accounts[key] = base
	}

	return nil
}

// Save writes the config as indented JSON, atomically: the content lands
// in a temp file in the target directory and is renamed into place, so a
// crash mid-write never leaves the dialer a truncated config.
func (c *AppConfig) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}

	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "failed to encode config", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to create temporary file in %s", dir), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return model.WrapCLIError(model.ExitConfigError, "failed to write config", err)
	}
	if err := tmp.Close(); err != nil {
		return model.WrapCLIError(model.ExitConfigError, "failed to write config", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to replace %s", path), err)
	}
	return nil
}

// SetAccountEmulator points the nth account at the given AVD and emulator
// console port, creating the account entry from defaults when it does not
// exist yet. Used after "android avd create --accounts".
func (c *AppConfig) SetAccountEmulator(index int, avdName string, port int) {
	key := strconv.Itoa(index)
	account, ok := c.Accounts[key]
	if !ok {
		account = defaultAccount(index)
	}
	account.EmulatorAVD = avdName
	account.EmulatorPort = port
	c.Accounts[key] = account
}

// AccountKeys returns the account map keys in numeric-then-lexical order,
// for stable display.
func (c *AppConfig) AccountKeys() []string {
	keys := make([]string, 0, len(c.Accounts))
	for k := range c.Accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])
		if errI == nil && errJ == nil {
			return ni < nj
		}
		if (errI == nil) != (errJ == nil) {
			return errI == nil
		}
		return keys[i] < keys[j]
	})
	return keys
}

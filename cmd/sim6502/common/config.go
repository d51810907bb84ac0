package common

import (
    "encoding/json"
    "log"
    "os"
    "path/filepath"
)

const CurrentVersion = 1

type Config struct {
    Version int `json:"version"`

    /* pacing for the step loop */
    StepsPerTick int `json:"steps-per-tick,omitempty"`
    TickIntervalMs int `json:"tick-interval-ms,omitempty"`

    WindowScale int `json:"window-scale,omitempty"`

    KeyboardInterrupt bool `json:"keyboard-interrupt,omitempty"`
    MouseInterrupt bool `json:"mouse-interrupt,omitempty"`
}

func DefaultConfig() Config {
    return Config{
        Version: CurrentVersion,
        StepsPerTick: 97,
        TickIntervalMs: 10,
        WindowScale: 4,
    }
}

func getConfigDir() (string, error) {
    base, err := os.UserConfigDir()
    if err != nil {
        return "", err
    }
    return filepath.Join(base, "sim6502"), nil
}

func configPath() (string, error) {
    dir, err := getConfigDir()
    if err != nil {
        return "", err
    }
    return filepath.Join(dir, "config.json"), nil
}

/* missing or unreadable files just mean the defaults */
func LoadConfig() Config {
    config := DefaultConfig()

    path, err := configPath()
    if err != nil {
        return config
    }

    file, err := os.Open(path)
    if err != nil {
        return config
    }
    defer file.Close()

    err = json.NewDecoder(file).Decode(&config)
    if err != nil {
        log.Printf("Warning: could not parse %v: %v", path, err)
        return DefaultConfig()
    }

    if config.StepsPerTick <= 0 {
        config.StepsPerTick = DefaultConfig().StepsPerTick
    }
    if config.WindowScale <= 0 {
        config.WindowScale = DefaultConfig().WindowScale
    }

    return config
}

func SaveConfig(config Config) error {
    dir, err := getConfigDir()
    if err != nil {
        return err
    }
    err = os.MkdirAll(dir, 0755)
    if err != nil {
        return err
    }

    path, err := configPath()
    if err != nil {
        return err
    }

    file, err := os.Create(path)
    if err != nil {
        return err
    }
    defer file.Close()

    config.Version = CurrentVersion
    encoder := json.NewEncoder(file)
    encoder.SetIndent("", "  ")
    return encoder.Encode(&config)
}

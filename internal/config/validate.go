package config

import (
	"fmt"
	"os"
)

// Validate checks the Configuration error class named in spec.md §7:
// conditions that must fail fast at startup rather than surface later as
// a runtime error. Matches teacher's config.go, which prints a fatal
// message and exits 1 on a bad config line instead of limping onward.
func Validate(s Satellite) error {
	if s.ServerURI == "" {
		return fmt.Errorf("config: --uri is required")
	}

	if s.Vad.Enabled && !s.Mic.Enabled() {
		return fmt.Errorf("config: --vad requires --mic-uri or --mic-command")
	}

	if len(s.Wake.Names) > 0 && !s.Wake.Enabled() {
		return fmt.Errorf("config: --wake-word-name given but no --wake-uri/--wake-command")
	}

	if s.Snd.Enabled() {
		if s.Snd.AwakeWav != "" {
			if _, err := os.Stat(s.Snd.AwakeWav); err != nil {
				return fmt.Errorf("config: --awake-wav %s: %w", s.Snd.AwakeWav, err)
			}
		}
		if s.Snd.DoneWav != "" {
			if _, err := os.Stat(s.Snd.DoneWav); err != nil {
				return fmt.Errorf("config: --done-wav %s: %w", s.Snd.DoneWav, err)
			}
		}
	}

	if s.Vad.Enabled && s.Vad.ModelPath == "" {
		return fmt.Errorf("config: --vad requires --vad-model")
	}

	return nil
}

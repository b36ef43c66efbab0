package trigger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/scry-cue/internal/config"
	"golang.org/x/text/cases"
)

// Kind is a gameplay event category.
type Kind string

// Event kinds
const (
	KindDeath       Kind = "death"
	KindTimer       Kind = "timer"
	KindAchievement Kind = "achievement"
	KindBlockBreak  Kind = "block_break"
	KindBlockPlace  Kind = "block_place"
	KindEntityKill  Kind = "entity_kill"
	KindChat        Kind = "chat"
)

// Kinds lists every event kind.
func Kinds() []Kind {
	return []Kind{KindDeath, KindTimer, KindAchievement, KindBlockBreak, KindBlockPlace, KindEntityKill, KindChat}
}

// ErrUnknownKind is returned for event kinds outside Kinds.
var ErrUnknownKind = errors.New("unknown event kind")

// ErrTimerNotReportable is returned when a client reports a timer event.
// The timer fires from Tick on elapsed play time only.
var ErrTimerNotReportable = errors.New("timer events cannot be reported")

// ErrInvalidConfig is returned when a trigger configuration is unusable.
var ErrInvalidConfig = errors.New("invalid trigger configuration")

// foldCase returns the case-folded form of s. Casers are stateful, so each
// call gets its own.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// ParseKind parses a kind name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	k := Kind(foldCase(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KindConfig configures one event kind.
type KindConfig struct {
	Enabled bool
	// Threshold is the number of matching events needed before a review
	// can fire.
	Threshold int
	// Cooldown is the minimum time between two reviews fired by this kind.
	Cooldown time.Duration
	// Whitelist restricts matching events to these subjects. Empty matches
	// any subject.
	Whitelist []string
	// Pattern is the case-insensitive substring a chat message must
	// contain. An empty pattern matches nothing.
	Pattern string
}

// Config configures the engine.
type Config struct {
	Kinds          map[Kind]KindConfig
	GlobalCooldown time.Duration
	TimerInterval  time.Duration
}

// DefaultConfig returns the stock trigger settings.
func DefaultConfig() Config {
	return Config{
		GlobalCooldown: 10 * time.Second,
		TimerInterval:  15 * time.Minute,
		Kinds: map[Kind]KindConfig{
			KindDeath:       {Enabled: true, Threshold: 2},
			KindTimer:       {Enabled: true, Threshold: 1},
			KindAchievement: {Enabled: true, Threshold: 1, Cooldown: time.Minute},
			KindBlockBreak: {
				Threshold: 100,
				Whitelist: []string{"stone", "dirt", "oak_log", "iron_ore", "diamond_ore"},
			},
			KindBlockPlace: {Threshold: 50},
			KindEntityKill: {
				Threshold: 10,
				Whitelist: []string{"zombie", "skeleton", "creeper", "spider", "enderman"},
			},
			KindChat: {Threshold: 10, Pattern: "edit"},
		},
	}
}

// FromSettings converts loaded application settings.
func FromSettings(s config.TriggersConfig) Config {
	kind := func(k config.TriggerKindConfig) KindConfig {
		return KindConfig{
			Enabled:   k.Enabled,
			Threshold: k.Threshold,
			Cooldown:  time.Duration(k.CooldownSeconds) * time.Second,
			Whitelist: append([]string(nil), k.Whitelist...),
			Pattern:   k.Pattern,
		}
	}

	return Config{
		GlobalCooldown: time.Duration(s.GlobalCooldownSeconds) * time.Second,
		TimerInterval:  time.Duration(s.TimerIntervalMinutes) * time.Minute,
		Kinds: map[Kind]KindConfig{
			KindDeath:       kind(s.Death),
			KindTimer:       kind(s.Timer),
			KindAchievement: kind(s.Achievement),
			KindBlockBreak:  kind(s.BlockBreak),
			KindBlockPlace:  kind(s.BlockPlace),
			KindEntityKill:  kind(s.EntityKill),
			KindChat:        kind(s.Chat),
		},
	}
}

// Validate checks every kind is configured with sane values.
func (c Config) Validate() error {
	if c.GlobalCooldown < 0 {
		return fmt.Errorf("%w: negative global cooldown", ErrInvalidConfig)
	}
	if c.TimerInterval <= 0 {
		return fmt.Errorf("%w: timer interval must be positive", ErrInvalidConfig)
	}
	for _, k := range Kinds() {
		kc, ok := c.Kinds[k]
		if !ok {
			return fmt.Errorf("%w: %s is not configured", ErrInvalidConfig, k)
		}
		if kc.Threshold < 1 {
			return fmt.Errorf("%w: %s threshold must be at least 1", ErrInvalidConfig, k)
		}
		if kc.Cooldown < 0 {
			return fmt.Errorf("%w: %s has a negative cooldown", ErrInvalidConfig, k)
		}
	}
	return nil
}

// matches reports whether an event passes the kind's subject and pattern
// filters.
func (kc KindConfig) matches(kind Kind, ev Event) bool {
	if kind == KindChat {
		if kc.Pattern == "" {
			return false
		}
		return strings.Contains(foldCase(ev.Text), foldCase(kc.Pattern))
	}

	if len(kc.Whitelist) == 0 {
		return true
	}
	subject := foldCase(stripNamespace(ev.Subject))
	for _, allowed := range kc.Whitelist {
		if foldCase(stripNamespace(allowed)) == subject {
			return true
		}
	}
	return false
}

// stripNamespace drops a "namespace:" prefix so "minecraft:stone" matches
// "stone".
func stripNamespace(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}

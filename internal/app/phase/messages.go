package phase

import (
	"strconv"
	"strings"

	"crateworks/internal/domain/crate"
	"crateworks/internal/domain/world"
)

// Messages are the player facing texts. Placeholders: %name%, %amount%,
// %player% and %item%.
type Messages struct {
	Launch        string `yaml:"launch"`
	Won           string `yaml:"won"`
	PrizeInfo     string `yaml:"prize_info"`
	RareGlobal    string `yaml:"rare_global"`
	Delivered     string `yaml:"delivered"`
	NoKey         string `yaml:"no_key"`
	Empty         string `yaml:"empty"`
	Busy          string `yaml:"busy"`
	InventoryFull string `yaml:"inventory_full"`
	Cooldown      string `yaml:"cooldown"`
}

func DefaultMessages() Messages {
	return Messages{
		Launch:        "Opening %name%...",
		Won:           "You won!",
		PrizeInfo:     " + %amount% x %name%",
		RareGlobal:    "%player% won %amount% x %item%!",
		Delivered:     "Rewards from %name% were delivered to your inventory.",
		NoKey:         "You need a %name% key to open this crate.",
		Empty:         "This crate has no rewards yet.",
		Busy:          "This crate is already being opened.",
		InventoryFull: "Your inventory is full.",
		Cooldown:      "Wait %amount% more ticks before opening another crate.",
	}
}

// WithDefaults fills empty texts from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	m.Launch = orDefault(m.Launch, d.Launch)
	m.Won = orDefault(m.Won, d.Won)
	m.PrizeInfo = orDefault(m.PrizeInfo, d.PrizeInfo)
	m.RareGlobal = orDefault(m.RareGlobal, d.RareGlobal)
	m.Delivered = orDefault(m.Delivered, d.Delivered)
	m.NoKey = orDefault(m.NoKey, d.NoKey)
	m.Empty = orDefault(m.Empty, d.Empty)
	m.Busy = orDefault(m.Busy, d.Busy)
	m.InventoryFull = orDefault(m.InventoryFull, d.InventoryFull)
	m.Cooldown = orDefault(m.Cooldown, d.Cooldown)
	return m
}

func (m Messages) LaunchFor(crateName string) string {
	return strings.NewReplacer("%name%", crateName).Replace(m.Launch)
}

func (m Messages) PrizeLine(it crate.Item) string {
	return strings.NewReplacer(
		"%amount%", strconv.Itoa(it.Amount),
		"%name%", it.DisplayName(),
	).Replace(m.PrizeInfo)
}

func (m Messages) RareLine(actor world.ObserverID, it crate.Item) string {
	return strings.NewReplacer(
		"%player%", string(actor),
		"%amount%", strconv.Itoa(it.Amount),
		"%item%", it.DisplayName(),
	).Replace(m.RareGlobal)
}

func (m Messages) DeliveredFor(crateName string) string {
	return strings.NewReplacer("%name%", crateName).Replace(m.Delivered)
}

func (m Messages) NoKeyFor(keyName string) string {
	return strings.NewReplacer("%name%", keyName).Replace(m.NoKey)
}

func (m Messages) CooldownFor(ticks int) string {
	return strings.NewReplacer("%amount%", strconv.Itoa(ticks)).Replace(m.Cooldown)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

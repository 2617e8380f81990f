package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Attribute defaults mirrored by the point-allocation rules.
const (
	BaseAttribute = 8
	MinAttribute  = 3
	MaxAttribute  = 18
	FreePoints    = 30

	DefaultMaxHP        = 20
	DefaultMaxMP        = 10
	DefaultMaxInventory = 50
)

var (
	// ErrUnknownAttribute indicates an attribute name with no alias.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrCharacterLocked indicates the sheet no longer accepts point changes.
	ErrCharacterLocked = errors.New("character is locked")
	// ErrInsufficientPoints indicates not enough free points remain.
	ErrInsufficientPoints = errors.New("not enough free points")
	// ErrAttributeBounds indicates an allocation would leave the valid range.
	ErrAttributeBounds = errors.New("attribute out of bounds")
	// ErrInventoryFull indicates the inventory capacity cap was reached.
	ErrInventoryFull = errors.New("inventory is full")
	// ErrItemNotFound indicates a missing inventory item.
	ErrItemNotFound = errors.New("item not found")
)

// Attributes is the six-score numeric attribute set.
type Attributes struct {
	Strength     int
	Dexterity    int
	Constitution int
	Intelligence int
	Wisdom       int
	Charisma     int
}

// attributeAliases maps shorthand names to canonical ones.
var attributeAliases = map[string]string{
	"str": "strength", "strength": "strength",
	"dex": "dexterity", "dexterity": "dexterity",
	"con": "constitution", "constitution": "constitution",
	"int": "intelligence", "intelligence": "intelligence",
	"wis": "wisdom", "wisdom": "wisdom",
	"cha": "charisma", "charisma": "charisma",
}

// Canonical resolves an attribute name or shorthand to its canonical form.
func Canonical(name string) (string, error) {
	canonical, ok := attributeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	return canonical, nil
}

// Get returns the score for a canonical or shorthand attribute name.
func (a Attributes) Get(name string) (int, error) {
	canonical, err := Canonical(name)
	if err != nil {
		return 0, err
	}
	switch canonical {
	case "strength":
		return a.Strength, nil
	case "dexterity":
		return a.Dexterity, nil
	case "constitution":
		return a.Constitution, nil
	case "intelligence":
		return a.Intelligence, nil
	case "wisdom":
		return a.Wisdom, nil
	default:
		return a.Charisma, nil
	}
}

func (a *Attributes) set(canonical string, value int) {
	switch canonical {
	case "strength":
		a.Strength = value
	case "dexterity":
		a.Dexterity = value
	case "constitution":
		a.Constitution = value
	case "intelligence":
		a.Intelligence = value
	case "wisdom":
		a.Wisdom = value
	case "charisma":
		a.Charisma = value
	}
}

// baseAttributes returns a fresh pre-allocation attribute set.
func baseAttributes() Attributes {
	return Attributes{
		Strength:     BaseAttribute,
		Dexterity:    BaseAttribute,
		Constitution: BaseAttribute,
		Intelligence: BaseAttribute,
		Wisdom:       BaseAttribute,
		Charisma:     BaseAttribute,
	}
}

// Item is one inventory entry.
type Item struct {
	Name        string
	Quantity    int
	Description string
	Kind        string
}

// Player is a participant's character within one session.
type Player struct {
	GroupID       string
	ParticipantID string
	CharacterName string

	Attributes Attributes
	HPCurrent  int
	HPMax      int
	MPCurrent  int
	MPMax      int
	Level      int
	Experience int

	Inventory     []Item
	MaxInventory  int
	StatusEffects []string

	// FreePoints and Allocated track the point-buy state. Locked sheets
	// reject further allocation.
	FreePoints int
	Allocated  map[string]int
	Locked     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPlayer builds a fresh character for a participant.
func NewPlayer(groupID, participantID, characterName string, now func() time.Time) *Player {
	if now == nil {
		now = time.Now
	}
	characterName = strings.TrimSpace(characterName)
	if characterName == "" {
		characterName = "nameless adventurer"
	}

	createdAt := now().UTC()
	return &Player{
		GroupID:       groupID,
		ParticipantID: participantID,
		CharacterName: characterName,
		Attributes:    baseAttributes(),
		HPCurrent:     DefaultMaxHP,
		HPMax:         DefaultMaxHP,
		MPCurrent:     DefaultMaxMP,
		MPMax:         DefaultMaxMP,
		Level:         1,
		MaxInventory:  DefaultMaxInventory,
		FreePoints:    FreePoints,
		Allocated:     make(map[string]int),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// Alive reports whether the character has hit points left.
func (p *Player) Alive() bool {
	return p.HPCurrent > 0
}

// ModifyHP shifts current hit points by delta, clamped to [0, max].
// Returns the values before and after.
func (p *Player) ModifyHP(delta int, now time.Time) (before, after int) {
	before = p.HPCurrent
	p.HPCurrent = clamp(p.HPCurrent+delta, 0, p.HPMax)
	p.touch(now)
	return before, p.HPCurrent
}

// ModifyMP shifts current resource points by delta, clamped to [0, max].
// Returns the values before and after.
func (p *Player) ModifyMP(delta int, now time.Time) (before, after int) {
	before = p.MPCurrent
	p.MPCurrent = clamp(p.MPCurrent+delta, 0, p.MPMax)
	p.touch(now)
	return before, p.MPCurrent
}

// AddItem adds quantity of an item, merging with an existing entry by name.
// New entries respect the inventory capacity cap.
func (p *Player) AddItem(item Item, now time.Time) error {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	for i := range p.Inventory {
		if p.Inventory[i].Name == item.Name {
			p.Inventory[i].Quantity += item.Quantity
			p.touch(now)
			return nil
		}
	}

	capacity := p.MaxInventory
	if capacity <= 0 {
		capacity = DefaultMaxInventory
	}
	if len(p.Inventory) >= capacity {
		return fmt.Errorf("%w: %d items", ErrInventoryFull, len(p.Inventory))
	}

	p.Inventory = append(p.Inventory, item)
	p.touch(now)
	return nil
}

// RemoveItem removes quantity of an item, dropping the entry when it empties.
func (p *Player) RemoveItem(name string, quantity int, now time.Time) error {
	if quantity <= 0 {
		quantity = 1
	}
	for i := range p.Inventory {
		if p.Inventory[i].Name != name {
			continue
		}
		if p.Inventory[i].Quantity <= quantity {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
		} else {
			p.Inventory[i].Quantity -= quantity
		}
		p.touch(now)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrItemNotFound, name)
}

// Item looks up an inventory entry by name.
func (p *Player) Item(name string) (Item, bool) {
	for _, item := range p.Inventory {
		if item.Name == name {
			return item, true
		}
	}
	return Item{}, false
}

// AddStatusEffect tags the character with an effect once.
func (p *Player) AddStatusEffect(effect string, now time.Time) {
	for _, existing := range p.StatusEffects {
		if existing == effect {
			return
		}
	}
	p.StatusEffects = append(p.StatusEffects, effect)
	p.touch(now)
}

// RemoveStatusEffect clears an effect tag.
func (p *Player) RemoveStatusEffect(effect string, now time.Time) {
	for i, existing := range p.StatusEffects {
		if existing == effect {
			p.StatusEffects = append(p.StatusEffects[:i], p.StatusEffects[i+1:]...)
			p.touch(now)
			return
		}
	}
}

// Allocate spends free points on an attribute (negative points refund).
func (p *Player) Allocate(attribute string, points int, now time.Time) error {
	if p.Locked {
		return ErrCharacterLocked
	}
	canonical, err := Canonical(attribute)
	if err != nil {
		return err
	}
	if points > 0 && points > p.FreePoints {
		return fmt.Errorf("%w: %d left, %d requested", ErrInsufficientPoints, p.FreePoints, points)
	}

	current, _ := p.Attributes.Get(canonical)
	next := current + points
	if next > MaxAttribute || next < MinAttribute {
		return fmt.Errorf("%w: %s would become %d", ErrAttributeBounds, canonical, next)
	}
	if points < 0 && p.Allocated[canonical]+points < 0 {
		return fmt.Errorf("%w: only %d points allocated to %s", ErrInsufficientPoints, p.Allocated[canonical], canonical)
	}

	p.Attributes.set(canonical, next)
	p.FreePoints -= points
	if p.Allocated == nil {
		p.Allocated = make(map[string]int)
	}
	p.Allocated[canonical] += points
	p.touch(now)
	return nil
}

// Lock freezes the sheet against further point allocation.
func (p *Player) Lock(now time.Time) {
	p.Locked = true
	p.touch(now)
}

// Unlock reopens the sheet for allocation.
func (p *Player) Unlock(now time.Time) {
	p.Locked = false
	p.touch(now)
}

// ResetPoints refunds every allocation back into the free pool.
func (p *Player) ResetPoints(now time.Time) (refunded int, err error) {
	if p.Locked {
		return 0, ErrCharacterLocked
	}

	names := make([]string, 0, len(p.Allocated))
	for name := range p.Allocated {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		points := p.Allocated[name]
		current, _ := p.Attributes.Get(name)
		p.Attributes.set(name, current-points)
		refunded += points
	}
	p.FreePoints += refunded
	p.Allocated = make(map[string]int)
	p.touch(now)
	return refunded, nil
}

func (p *Player) touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

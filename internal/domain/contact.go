package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// ContactPalette stores the chip colors contacts are assigned from, indexed by ColorIndex.
var ContactPalette = []string{
	"#FF7A00",
	"#FF5EB3",
	"#6E52FF",
	"#9327FF",
	"#00BEE8",
	"#1FD7C1",
	"#FF745E",
	"#FFA35E",
	"#FC71FF",
	"#FFC701",
	"#0038FF",
	"#C3FF2B",
	"#FFE62B",
	"#FF4646",
	"#FFBB2B",
}

// Contact represents one person tasks can be assigned to.
type Contact struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	ColorIndex int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ContactInput holds input values for NewContact.
type ContactInput struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	ColorIndex int
}

// AssignedContact is the display snapshot of a contact stored on a task at assignment time.
type AssignedContact struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ColorIndex int    `json:"color_index"`
	Initials   string `json:"initials"`
}

// NewContact validates input and constructs a contact.
func NewContact(in ContactInput, now time.Time) (Contact, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return Contact{}, ErrInvalidID
	}
	c := Contact{
		ID:        in.ID,
		CreatedAt: now.UTC(),
	}
	if err := c.UpdateDetails(in.Name, in.Email, in.Phone, in.ColorIndex, now); err != nil {
		return Contact{}, err
	}
	return c, nil
}

// UpdateDetails replaces the editable contact fields.
func (c *Contact) UpdateDetails(name, email, phone string, colorIndex int, now time.Time) error {
	name = strings.Join(strings.Fields(name), " ")
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return ErrInvalidName
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return ErrInvalidEmail
		}
	}
	if colorIndex < 0 || colorIndex >= len(ContactPalette) {
		return ErrInvalidColorIndex
	}
	c.Name = name
	c.Email = email
	c.Phone = phone
	c.ColorIndex = colorIndex
	c.UpdatedAt = now.UTC()
	return nil
}

// Assignment snapshots the contact's display data for storage on a task.
func (c Contact) Assignment() AssignedContact {
	return AssignedContact{
		ID:         c.ID,
		Name:       c.Name,
		ColorIndex: c.ColorIndex,
		Initials:   Initials(c.Name),
	}
}

// Initials returns the uppercased first letters of the first and last word of name.
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	first := firstLetter(words[0])
	if len(words) == 1 {
		return first
	}
	return first + firstLetter(words[len(words)-1])
}

// ContactColor returns the palette hex color for a color index, wrapping out-of-range values.
func ContactColor(idx int) string {
	n := len(ContactPalette)
	idx %= n
	if idx < 0 {
		idx += n
	}
	return ContactPalette[idx]
}

// firstLetter returns the first rune of word, uppercased.
func firstLetter(word string) string {
	for _, r := range word {
		return string(unicode.ToUpper(r))
	}
	return ""
}

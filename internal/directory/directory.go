// Package directory maps people's names to their email addresses.
//
// The roster is a TOML file:
//
//	[[person]]
//	name = "Nam Nguyen"
//	email = "nam@example.com"
//	aliases = ["nam", "nammy"]
package directory

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// ErrInvalidRoster is returned for rosters that fail to parse or validate.
var ErrInvalidRoster = errors.New("invalid roster")

// Person is one roster entry.
type Person struct {
	Name    string   `toml:"name"`
	Email   string   `toml:"email"`
	Aliases []string `toml:"aliases"`
}

type roster struct {
	Person []Person `toml:"person"`
}

// Directory is a concurrency-safe, reloadable roster.
type Directory struct {
	path string

	mu     sync.RWMutex
	people []Person
	byKey  map[string]int
	first  map[string][]int
}

// Load reads the roster at path.
func Load(path string) (*Directory, error) {
	d := &Directory{path: path}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// New builds a Directory from people without a backing file.
func New(people ...Person) (*Directory, error) {
	d := &Directory{}
	if err := d.set(people); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the roster file. On error the previous roster stays active.
func (d *Directory) Reload() error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("reading roster: %w", err)
	}
	var r roster
	if _, err := toml.Decode(string(data), &r); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRoster, d.path, err)
	}
	return d.set(r.Person)
}

func (d *Directory) set(people []Person) error {
	byKey := make(map[string]int)
	first := make(map[string][]int)
	for i, p := range people {
		name := key(p.Name)
		if name == "" || strings.TrimSpace(p.Email) == "" {
			return fmt.Errorf("%w: entry %d needs a name and an email", ErrInvalidRoster, i+1)
		}
		for _, k := range append([]string{name}, lowerAll(p.Aliases)...) {
			if j, dup := byKey[k]; dup && j != i {
				return fmt.Errorf("%w: %q is used by more than one person", ErrInvalidRoster, k)
			}
			byKey[k] = i
		}
		if f := strings.Fields(name)[0]; f != name {
			first[f] = append(first[f], i)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.people = append([]Person(nil), people...)
	d.byKey = byKey
	d.first = first
	return nil
}

// Lookup returns the email for name. Full names and aliases match ignoring
// case; a bare first name matches only when exactly one person has it.
func (d *Directory) Lookup(name string) (email string, ok bool) {
	k := key(name)
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i, ok := d.byKey[k]; ok {
		return d.people[i].Email, true
	}
	if idx := d.first[k]; len(idx) == 1 {
		return d.people[idx[0]].Email, true
	}
	return "", false
}

// Names returns every person's display name in roster order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.people))
	for i, p := range d.people {
		out[i] = p.Name
	}
	return out
}

// Path returns the roster file, or "" for in-memory directories.
func (d *Directory) Path() string { return d.path }

func key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if k := key(s); k != "" {
			out = append(out, k)
		}
	}
	return out
}

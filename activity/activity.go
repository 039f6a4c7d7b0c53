package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Activity is a single entry of the activity collection.
type Activity struct {
	// Name is the unique key of the activity. It is not part of the JSON body,
	// the API uses it as the object key.
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns the number of free places.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// HasParticipant reports whether email is signed up for the activity.
func (a Activity) HasParticipant(email string) bool {
	return slices.Contains(a.Participants, email)
}

// Collection is the activity collection keyed by name, in server order.
type Collection struct {
	activities []Activity
	index      map[string]int
}

// NewCollection builds a Collection from the given activities.
// A later activity with the same name replaces an earlier one in place.
func NewCollection(activities ...Activity) Collection {
	var c Collection
	for _, a := range activities {
		c.put(a)
	}
	return c
}

func (c *Collection) put(a Activity) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if a.Participants == nil {
		a.Participants = []string{}
	}
	if i, ok := c.index[a.Name]; ok {
		c.activities[i] = a
		return
	}
	c.index[a.Name] = len(c.activities)
	c.activities = append(c.activities, a)
}

// Len returns the number of activities.
func (c Collection) Len() int {
	return len(c.activities)
}

// All returns a copy of the activities in collection order.
func (c Collection) All() []Activity {
	return slices.Clone(c.activities)
}

// Names returns the activity names in collection order.
func (c Collection) Names() []string {
	names := make([]string, 0, len(c.activities))
	for _, a := range c.activities {
		names = append(names, a.Name)
	}
	return names
}

// Get returns the activity with the given name.
func (c Collection) Get(name string) (Activity, bool) {
	i, ok := c.index[name]
	if !ok {
		return Activity{}, false
	}
	return c.activities[i], true
}

// UnmarshalJSON decodes the API object form, preserving key order.
func (c *Collection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = Collection{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("activity collection: expected object, got %v", tok)
	}

	out := Collection{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("activity collection: unexpected key %v", tok)
		}

		var a Activity
		if err := dec.Decode(&a); err != nil {
			return fmt.Errorf("activity %q: %w", name, err)
		}
		a.Name = name
		out.put(a)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// MarshalJSON encodes the collection in the API object form, in collection order.
func (c Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c.activities {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

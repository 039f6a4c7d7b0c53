// Package activity defines the activity data model consumed from the activities API.
//
// An Activity is a named event with a schedule, a capacity and an ordered list of
// participant email addresses. The API returns activities as a single JSON object
// keyed by activity name; Collection keeps those entries in the order the server
// sent them so that every render lists activities the same way.
//
// # Usage
//
//	var c activity.Collection
//	if err := json.Unmarshal(body, &c); err != nil {
//	    return err
//	}
//	for _, a := range c.All() {
//	    fmt.Printf("%s: %d spots left\n", a.Name, a.SpotsLeft())
//	}
//
// Capacity is enforced by the server. SpotsLeft reports whatever the server says,
// which can be negative if an activity has been over-booked.
package activity

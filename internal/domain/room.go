package domain

import (
	"fmt"
	"strings"
)

// RoomKey identifies one task's comment room. Two sessions resolve to the
// same room iff they refer to the same task, so construction always goes
// through NewRoomKey: the organization slug is lowercased and the task
// reference uppercased before either is used as a key.
type RoomKey struct {
	OrgSlug string
	TaskRef string
}

// NewRoomKey builds a normalized room key from URL path components.
func NewRoomKey(orgSlug, taskRef string) RoomKey {
	return RoomKey{
		OrgSlug: strings.ToLower(orgSlug),
		TaskRef: strings.ToUpper(taskRef),
	}
}

// Channel renders the room's stable channel name, used for logging and as
// routing metadata on the comment bus.
func (k RoomKey) Channel() string {
	return fmt.Sprintf("task_comments:%s:%s", k.OrgSlug, k.TaskRef)
}

func (k RoomKey) String() string {
	return k.Channel()
}

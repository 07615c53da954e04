package realtime

import (
	"fmt"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// Broadcast rooms joined by every connection of a kind.
const (
	RoomStaff    = "staff"
	RoomStudents = "students"
)

// UserRoom is the private room of one account.
func UserRoom(kind models.IdentityKind, id string) string {
	return fmt.Sprintf("user:%s:%s", kind, id)
}

// ClassRoom groups the students of a class.
func ClassRoom(classID string) string {
	return "class:" + classID
}

// RoomsFor lists the rooms a connection for identity joins.
func RoomsFor(identity *models.Identity) []string {
	switch {
	case identity.IsStaff():
		return []string{UserRoom(models.KindStaff, identity.ID()), RoomStaff}
	case identity.IsStudent():
		rooms := []string{UserRoom(models.KindStudent, identity.ID()), RoomStudents}
		if identity.Student.ClassID != "" {
			rooms = append(rooms, ClassRoom(identity.Student.ClassID))
		}
		return rooms
	}
	return nil
}

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

type countingObserver struct {
	open int64
}

func (o *countingObserver) WebsocketConnected(delta int) {
	atomic.AddInt64(&o.open, int64(delta))
}

func dial(t *testing.T, hub *Hub, identity *models.Identity) (*websocket.Conn, func()) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, identity)
	}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitForRoom(t *testing.T, hub *Hub, room string, size int) {
	require.Eventually(t, func() bool { return hub.RoomSize(room) == size }, 2*time.Second, 10*time.Millisecond)
}

func TestRoomsFor(t *testing.T) {
	staff := models.NewStaffIdentity(&models.Staff{ID: "t1", Role: models.RoleTeacher})
	student := models.NewStudentIdentity(&models.Student{ID: "st1", ClassID: "c1"})

	assert.Equal(t, []string{"user:staff:t1", RoomStaff}, RoomsFor(staff))
	assert.Equal(t, []string{"user:student:st1", RoomStudents, "class:c1"}, RoomsFor(student))
	assert.Nil(t, RoomsFor(&models.Identity{}))
}

func TestHubDeliversToRoomMembersOnly(t *testing.T) {
	observer := &countingObserver{}
	hub := NewHub(nil, observer, nil)

	student := models.NewStudentIdentity(&models.Student{ID: "st1", ClassID: "c1"})
	teacher := models.NewStaffIdentity(&models.Staff{ID: "t1", Role: models.RoleTeacher})

	studentConn, closeStudent := dial(t, hub, student)
	defer closeStudent()
	teacherConn, closeTeacher := dial(t, hub, teacher)
	defer closeTeacher()

	waitForRoom(t, hub, "user:student:st1", 1)
	waitForRoom(t, hub, RoomStaff, 1)
	assert.EqualValues(t, 2, atomic.LoadInt64(&observer.open))

	delivered := hub.Deliver(models.Notification{Room: "user:student:st1", Type: models.NotificationGrade, Message: "graded", Timestamp: time.Now()})
	assert.Equal(t, 1, delivered)

	var got models.Notification
	require.NoError(t, studentConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, studentConn.ReadJSON(&got))
	assert.Equal(t, models.NotificationGrade, got.Type)
	assert.Equal(t, "graded", got.Message)

	require.NoError(t, teacherConn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := teacherConn.ReadMessage()
	assert.Error(t, err)
}

func TestHubUnregistersOnClose(t *testing.T) {
	observer := &countingObserver{}
	hub := NewHub(nil, observer, nil)
	student := models.NewStudentIdentity(&models.Student{ID: "st2", ClassID: "c9"})

	_, closeConn := dial(t, hub, student)
	waitForRoom(t, hub, ClassRoom("c9"), 1)
	closeConn()

	waitForRoom(t, hub, ClassRoom("c9"), 0)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&observer.open) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLocalPublisher(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	student := models.NewStudentIdentity(&models.Student{ID: "st3"})
	conn, closeConn := dial(t, hub, student)
	defer closeConn()
	waitForRoom(t, hub, RoomStudents, 1)

	require.NoError(t, NewLocalPublisher(hub).Publish(context.Background(), models.Notification{Room: RoomStudents, Type: models.NotificationSystem, Message: "hello"}))

	var got models.Notification
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "hello", got.Message)
}

func TestUpgraderRejectsUnknownOrigin(t *testing.T) {
	upgrader := buildUpgrader([]string{"https://portal.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, upgrader.CheckOrigin(req))
	req.Header.Set("Origin", "https://portal.example.com")
	assert.True(t, upgrader.CheckOrigin(req))
	req.Header.Set("Origin", "https://PORTAL.example.com/")
	assert.True(t, upgrader.CheckOrigin(req))
	req.Header.Del("Origin")
	assert.False(t, upgrader.CheckOrigin(req))

	assert.True(t, buildUpgrader(nil).CheckOrigin(req))
}

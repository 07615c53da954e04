package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	teacherIdentity = models.NewStaffIdentity(&models.Staff{ID: "teacher-1", StaffID: "T-100", FirstName: "Ada", LastName: "Lovelace", Role: models.RoleTeacher, Active: true})
	studentIdentity = models.NewStudentIdentity(&models.Student{ID: "student-1", StudentID: "S-001", ClassID: "class-1", EnrollmentStatus: models.EnrollmentEnrolled})
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withIdentity(c *gin.Context, identity *models.Identity) {
	middleware.SetIdentity(c, identity)
}

type envelope struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Data       json.RawMessage        `json:"data"`
	Error      *struct{ Code string } `json:"error"`
	Pagination *struct {
		Page       int `json:"page"`
		PageSize   int `json:"page_size"`
		TotalCount int `json:"total_count"`
	} `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

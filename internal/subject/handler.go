package subject

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Iqrapath/IqraQuest-sub002/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// @Summary      Create subject
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body CreateSubjectRequest true "Subject"
// @Success      201 {object} Subject
// @Router       /admin/subjects [post]
// @Security     BearerAuth
func (h *Handler) CreateSubject(c *gin.Context) {
	var req CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	s, err := h.repo.CreateSubject(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subject"})
		return
	}

	c.JSON(http.StatusCreated, s)
}

// @Summary      List subjects
// @Tags         subjects
// @Produce      json
// @Success      200 {array} Subject
// @Router       /subjects [get]
// @Security     BearerAuth
func (h *Handler) ListSubjects(c *gin.Context) {
	subjects, err := h.repo.GetAllSubjects(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subjects"})
		return
	}

	c.JSON(http.StatusOK, subjects)
}

// @Summary      Teachers offering a subject
// @Tags         subjects
// @Produce      json
// @Param        subjectID path int true "Subject ID"
// @Success      200 {array} TeacherForSubject
// @Router       /subjects/{subjectID}/teachers [get]
// @Security     BearerAuth
func (h *Handler) ListTeachers(c *gin.Context) {
	subjectID, err := strconv.Atoi(c.Param("subjectID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subject id"})
		return
	}

	if _, err := h.repo.GetSubjectByID(c.Request.Context(), subjectID); err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subject"})
		return
	}

	teachers, err := h.repo.ListTeachersForSubject(c.Request.Context(), subjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load teachers"})
		return
	}

	c.JSON(http.StatusOK, teachers)
}

// @Summary      Assign a teacher to a subject
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        subjectID path int true "Subject ID"
// @Param        request body AssignTeacherRequest true "Assignment"
// @Success      200 {object} TeacherSubject
// @Router       /admin/subjects/{subjectID}/teachers [post]
// @Security     BearerAuth
func (h *Handler) AssignTeacher(c *gin.Context) {
	subjectID, err := strconv.Atoi(c.Param("subjectID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subject id"})
		return
	}

	var req AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	if req.HourlyRate != nil && !req.HourlyRate.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hourly_rate must be positive"})
		return
	}

	ts, err := h.repo.AssignTeacher(c.Request.Context(), req.TeacherID, subjectID, req.HourlyRate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign teacher"})
		return
	}

	c.JSON(http.StatusOK, ts)
}

package server

import (
	"context"
	"net/http"

	"github.com/Iqrapath/IqraQuest-sub002/internal/auth"
	"github.com/Iqrapath/IqraQuest-sub002/internal/booking"
	"github.com/Iqrapath/IqraQuest-sub002/internal/config"
	"github.com/Iqrapath/IqraQuest-sub002/internal/earnings"
	"github.com/Iqrapath/IqraQuest-sub002/internal/escrow"
	"github.com/Iqrapath/IqraQuest-sub002/internal/notification"
	"github.com/Iqrapath/IqraQuest-sub002/internal/settings"
	"github.com/Iqrapath/IqraQuest-sub002/internal/subject"
	"github.com/Iqrapath/IqraQuest-sub002/internal/user"
	"github.com/Iqrapath/IqraQuest-sub002/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Deps carries the already-wired services the router exposes. The escrow
// service is built outside so the release sweeper can share it.
type Deps struct {
	DB            *sqlx.DB
	Config        *config.Config
	Notifications *notification.Service
	Users         user.Repository
	Settings      *settings.Repository
	Wallets       wallet.Service
	Bookings      booking.Service
	Escrow        escrow.Service
	Earnings      *earnings.Repository
	Subjects      subject.Repository
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(d Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	userHandler := user.NewHandler(user.NewService(d.Users, d.Config.JWTSecret), d.Users, d.Config.JWTSecret)
	subjectHandler := subject.NewHandler(d.Subjects)
	walletHandler := wallet.NewHandler(d.Wallets)
	bookingHandler := booking.NewHandler(d.Bookings)
	escrowHandler := escrow.NewHandler(d.Escrow)
	settingsHandler := settings.NewHandler(d.Settings)
	earningsHandler := earnings.NewHandler(d.Earnings)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(d.Config.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/subjects", subjectHandler.ListSubjects)
		protected.GET("/subjects/:subjectID/teachers", subjectHandler.ListTeachers)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.POST("/wallet/topup", walletHandler.TopUp)
		protected.POST("/wallet/withdraw", walletHandler.Withdraw)
		protected.GET("/wallet/transactions", walletHandler.Transactions)

		protected.GET("/availability", bookingHandler.CheckAvailability)
		protected.POST("/bookings", bookingHandler.CreateBooking)
		protected.GET("/bookings", bookingHandler.MyBookings)
		protected.GET("/bookings/:bookingID", bookingHandler.GetBooking)
		protected.POST("/bookings/recurring", bookingHandler.CreateRecurring)
		protected.POST("/bookings/:bookingID/confirm", bookingHandler.ConfirmBooking)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.CancelBooking)
		protected.POST("/bookings/:bookingID/dispute", bookingHandler.DisputeBooking)
		protected.POST("/offers", bookingHandler.CreateOffer)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/subjects", subjectHandler.CreateSubject)
		admin.POST("/subjects/:subjectID/teachers", subjectHandler.AssignTeacher)
		admin.POST("/teachers/:teacherID/rate", userHandler.SetHourlyRate)

		admin.GET("/settings", settingsHandler.Get)
		admin.PUT("/settings", settingsHandler.Update)

		admin.POST("/bookings/:bookingID/attendance", bookingHandler.RecordAttendance)
		admin.GET("/stats/bookings", bookingHandler.BookingStats)

		admin.POST("/escrow/:bookingID/hold", escrowHandler.Hold)
		admin.POST("/escrow/:bookingID/release", escrowHandler.Release)
		admin.POST("/escrow/:bookingID/refund", escrowHandler.Refund)
		admin.POST("/escrow/:bookingID/partial", escrowHandler.Partial)
		admin.POST("/escrow/:bookingID/session-completed", escrowHandler.SessionCompleted)
		admin.POST("/escrow/:bookingID/teacher-no-show", escrowHandler.TeacherNoShow)
		admin.POST("/escrow/:bookingID/student-no-show", escrowHandler.StudentNoShow)
		admin.POST("/escrow/sweep", escrowHandler.Sweep)

		admin.GET("/earnings", earningsHandler.Summary)
		admin.GET("/earnings/bookings/:bookingID", earningsHandler.ByBooking)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-notification", TestNotification(d.Notifications))

	return &Server{router: router}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

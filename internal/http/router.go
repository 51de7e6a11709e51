package api

import (
	stdhttp "net/http"

	"campusride/internal/auth"
	intconfig "campusride/internal/config"
	"campusride/internal/events"
	h "campusride/internal/http/handlers"
	"campusride/internal/http/middleware"
	"campusride/internal/realtime"
	"campusride/internal/repositories"
	"campusride/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps is everything the router needs; main wires it once at startup.
type Deps struct {
	Env    intconfig.Env
	Log    *zap.Logger
	Store  repositories.Store
	Tokens *auth.TokenService
	Events events.Publisher
	Hub    *realtime.Hub
}

func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Hub == nil {
		d.Hub = realtime.NewHub(realtime.DefaultBuffer, log)
	}

	hd := &h.Handler{
		Auth:      services.AuthService{Store: d.Store, Tokens: d.Tokens, Log: log},
		Users:     services.UserService{Store: d.Store, Log: log},
		Rides:     services.RideService{Store: d.Store, Events: d.Events, Log: log},
		Bookings:  services.BookingService{Store: d.Store, Events: d.Events, Log: log},
		Messages:  services.MessageService{Store: d.Store, Hub: d.Hub, Log: log},
		Reviews:   services.ReviewService{Store: d.Store, Events: d.Events, Log: log},
		Emergency: services.EmergencyService{Store: d.Store, Events: d.Events, Log: log},
		Docs:      services.DocsService{Store: d.Store, Log: log},
		Hub:       d.Hub,
		Store:     d.Store,

		CookieSecure:   d.Env.CookieSecure,
		AllowedOrigins: d.Env.CORSAllowedOrigins,
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery(), middleware.CORS(d.Env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":      "route not found",
			"code":       "not_found",
			"message":    "route not found",
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": middleware.GetRequestID(c),
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", hd.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/routes", hd.Routes)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", hd.Register)
		authGroup.POST("/login", hd.Login)
		authGroup.POST("/logout", hd.Logout)

		secured := api.Group("")
		secured.Use(middleware.AuthRequired(hd.Auth))

		secured.GET("/auth/me", hd.Me)

		// Users
		users := secured.Group("/users")
		users.GET("/:id", hd.GetUser)
		users.PUT("/me", hd.UpdateMe)

		// Rides
		rides := secured.Group("/rides")
		rides.GET("", hd.ListRides)
		rides.GET("/:id", hd.GetRide)
		rides.GET("/:id/bookings", hd.ListRideBookings)
		rides.GET("/driver/:driverId", middleware.RequireDriver(), hd.ListDriverRides)
		rides.POST("", middleware.RequireDriver(), hd.CreateRide)
		rides.PUT("/:id", hd.UpdateRide)
		rides.DELETE("/:id", hd.CancelRide)

		// Bookings
		bookings := secured.Group("/bookings")
		bookings.GET("", hd.ListMyBookings)
		bookings.POST("", hd.CreateBooking)
		bookings.GET("/:id", hd.GetBooking)
		bookings.PUT("/:id/status", hd.UpdateBookingStatus)
		bookings.DELETE("/:id", hd.DeleteBooking)
		bookings.GET("/:id/ticket", hd.GetBookingTicket)

		// Messages
		messages := secured.Group("/messages")
		messages.GET("", hd.ListConversations)
		messages.POST("", hd.SendMessage)
		messages.GET("/unread/count", hd.UnreadCount)
		messages.GET("/stream", hd.StreamMessages)
		messages.GET("/ws", hd.MessagesWebSocket)
		messages.GET("/:userId", hd.GetConversation)
		messages.PUT("/:id/read", hd.MarkMessageRead)

		// Reviews
		reviews := secured.Group("/reviews")
		reviews.POST("", hd.CreateReview)
		reviews.GET("/user/:userId", hd.ListUserReviews)

		// Emergency
		contacts := secured.Group("/emergency-contacts")
		contacts.GET("", hd.ListContacts)
		contacts.POST("", hd.CreateContact)
		contacts.PUT("/:id", hd.UpdateContact)
		contacts.DELETE("/:id", hd.DeleteContact)

		alerts := secured.Group("/emergency-alerts")
		alerts.GET("", hd.ListAlerts)
		alerts.POST("", hd.RaiseAlert)
		alerts.PUT("/:id/resolve", hd.ResolveAlert)
	}

	h.SetRouter(r)
	return r
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-floor/controllers"
	"github.com/yeremiapane/restaurant-floor/middlewares"
	"github.com/yeremiapane/restaurant-floor/models"
	"gorm.io/gorm"
)

const Version = "1.0.0"

type Options struct {
	CORSOrigins []string
	// RateLimit is the number of requests per IP per second; 0 disables it.
	RateLimit int
	// LoginAttempts is the burst of login/register attempts per IP per minute.
	LoginAttempts int
	Security      middlewares.SecurityOptions

	// RequestLimiter and LoginLimiter replace the limiters built from
	// RateLimit and LoginAttempts, so the caller can sweep their idle clients.
	RequestLimiter *middlewares.RateLimiter
	LoginLimiter   *middlewares.StrictRateLimiter
}

// NewRequestLimiter returns the limiter for RateLimit, or nil when it is off.
func (o Options) NewRequestLimiter() *middlewares.RateLimiter {
	if o.RateLimit <= 0 {
		return nil
	}
	return middlewares.NewRateLimiter(o.RateLimit, time.Second)
}

// NewLoginLimiter returns the limiter guarding /api/auth.
func (o Options) NewLoginLimiter() *middlewares.StrictRateLimiter {
	attempts := o.LoginAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return middlewares.NewStrictRateLimiter(time.Minute, attempts)
}

func SetupRouter(db *gorm.DB, deps *controllers.Deps, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders(opts.Security))
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigins))
	requests := opts.RequestLimiter
	if requests == nil {
		requests = opts.NewRequestLimiter()
	}
	if requests != nil {
		r.Use(requests.RateLimit())
	}
	login := opts.LoginLimiter
	if login == nil {
		login = opts.NewLoginLimiter()
	}

	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(deps)
	queueCtrl := controllers.NewQueueController(deps)
	floorCtrl := controllers.NewFloorController(deps)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":    "Restaurant floor manager API",
			"version":    Version,
			"components": []string{"occupancy monitor", "matcher", "queue compactor", "wait estimator", "notifier"},
		})
	})
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error(), "timestamp": time.Now().UTC()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(login.Middleware())
	{
		authGroup.POST("/register", userCtrl.Register)
		authGroup.POST("/login", userCtrl.Login)
	}

	api.GET("/tables", tableCtrl.GetAllTables)
	api.GET("/tables/:table_id", tableCtrl.GetTableByID)

	api.GET("/queue", queueCtrl.GetQueue)
	api.POST("/queue", queueCtrl.JoinQueue)
	api.GET("/queue/:entry_id", queueCtrl.GetEntry)
	api.DELETE("/queue/:entry_id", queueCtrl.LeaveQueue)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	staff := api.Group("")
	staff.Use(middlewares.AuthMiddleware())
	{
		staff.POST("/auth/logout", userCtrl.Logout)
		staff.GET("/auth/profile", userCtrl.GetProfile)
	}

	floorStaff := staff.Group("")
	floorStaff.Use(middlewares.RoleCheck(models.RoleStaff, models.RoleHost))
	{
		floorStaff.POST("/tables", tableCtrl.CreateTable)
		floorStaff.PUT("/tables/:table_id", tableCtrl.UpdateTableStatus)
		floorStaff.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		floorStaff.POST("/floor/cycle", floorCtrl.RunCycle)
		floorStaff.GET("/floor/status", floorCtrl.GetStatus)
		floorStaff.GET("/floor/notifications", floorCtrl.GetNotifications)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := staff.Group("/users")
	admin.Use(middlewares.RoleCheck())
	{
		admin.POST("", userCtrl.CreateUser)
		admin.PUT("/:user_id/role", userCtrl.UpdateUserRole)
	}

	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	{
		ws.GET("", controllers.FloorFeedHandler(deps.Hub))
	}

	return r
}

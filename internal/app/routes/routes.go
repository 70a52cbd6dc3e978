package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/machzor/internal/app/controllers"
	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/app/models/dto"
	"github.com/yigit/machzor/internal/middleware"
	"github.com/yigit/machzor/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	studentController *controllers.StudentController,
	importController *controllers.ImportController,
	feedHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/logout", authController.Logout)
		authenticated.GET("/auth/me", authController.GetProfile)

		// Student routes. Reads are open to every authenticated role;
		// mutations require record-keeping permissions.
		students := authenticated.Group("/students")
		{
			students.GET("", studentController.ListStudents)
			students.GET("/stats", studentController.GetStats)
			students.GET("/by-number/:idNumber", studentController.GetStudentByIDNumber)
			students.GET("/:id", studentController.GetStudentByID)
			students.GET("/:id/history", studentController.GetStudentHistory)

			studentsWriteProtected := students.Group("")
			studentsWriteProtected.Use(authMiddleware.RoleRequired(string(models.RoleAdmin), string(models.RoleRegistrar)))
			{
				studentsWriteProtected.POST("", studentController.CreateStudent)
				studentsWriteProtected.PUT("/:id", studentController.UpdateStudent)
				studentsWriteProtected.DELETE("/:id", studentController.DeleteStudent)
				studentsWriteProtected.POST("/:id/location", studentController.RecordLocationChange)
			}
		}

		// Import routes. Run inspection is read-only; reconciliation itself
		// mutates student records and is gated accordingly.
		imports := authenticated.Group("/import")
		{
			imports.GET("/runs", importController.ListImportRuns)
			imports.GET("/runs/:id", importController.GetImportRun)

			importsWriteProtected := imports.Group("")
			importsWriteProtected.Use(authMiddleware.RoleRequired(string(models.RoleAdmin), string(models.RoleRegistrar)))
			{
				importsWriteProtected.POST("/rows", importController.ReconcileRows)
				importsWriteProtected.POST("/upload", importController.UploadRoster)
			}
		}

		// Staff account management (administrators only)
		users := authenticated.Group("/users")
		users.Use(authMiddleware.RoleRequired(string(models.RoleAdmin)))
		{
			users.POST("", authController.CreateUser)
			users.GET("", authController.ListUsers)
		}

		// Live activity feed over websocket
		authenticated.GET("/activity/ws", feedHandler.HandleConnection)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.APIResponse{
			Data:      gin.H{"status": "ok"},
			Timestamp: time.Now(),
		})
	})
}

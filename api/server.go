// Package api provides the REST API server for beatgrid
package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/probeat/beatgrid/convert"
	"github.com/probeat/beatgrid/logging"
	"github.com/probeat/beatgrid/pattern"
)

// Server wraps the HTTP layer around the conversion pipeline. Each request
// builds its own converter from the request parameters, so one Server can
// handle concurrent conversions.
type Server struct {
	logger logging.Logger
	engine *gin.Engine
}

// NewServer creates a server with the given diagnostics sink
func NewServer(logger logging.Logger) *Server {
	s := &Server{logger: logging.OrDefault(logger)}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", s.healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.GET("/methods", s.listMethods)
		v1.POST("/convert", s.handleConvert)
		v1.POST("/convert/midi", s.handleConvertMIDI)
	}

	s.engine = r
	return s
}

// Run starts the server on the specified port and blocks
func (s *Server) Run(port int) error {
	s.logger.Info("Starting API server", logging.Fields{"port": port})
	return s.engine.Run(fmt.Sprintf(":%d", port))
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "beatgrid",
	})
}

func (s *Server) listMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"methods": []string{
			string(convert.MethodSpectral),
			string(convert.MethodNoteEvents),
			string(convert.MethodMIDI),
		},
	})
}

// handleConvert uploads an audio file and returns the pattern as JSON
func (s *Server) handleConvert(c *gin.Context) {
	result, _, ok := s.runConversion(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      uuid.NewString(),
		"pattern": result,
	})
}

// handleConvertMIDI uploads an audio file and returns the pattern rendered
// as a Standard MIDI File
func (s *Server) handleConvertMIDI(c *gin.Context) {
	result, name, ok := s.runConversion(c)
	if !ok {
		return
	}

	data, err := pattern.ExportMIDI(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outputName := name
	if ext := filepath.Ext(outputName); ext != "" {
		outputName = outputName[:len(outputName)-len(ext)]
	}
	if outputName == "" {
		outputName = "pattern"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.mid", outputName))
	c.Data(http.StatusOK, "audio/midi", data)
}

// runConversion handles the shared upload-and-convert path. It reports
// whether the handler should continue; on false a response has been written.
func (s *Server) runConversion(c *gin.Context) (*pattern.Pattern, string, bool) {
	cfg, err := configFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}

	// The decoder works on paths, so stage the upload in a temp file
	tempPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return nil, "", false
	}
	defer os.Remove(tempPath)

	converter, err := convert.NewConverter(cfg, s.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	result, err := converter.ConvertFile(c.Request.Context(), tempPath)
	if err != nil {
		s.logger.Error(err, "Conversion failed", logging.Fields{"file": file.Filename})
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil, "", false
	}

	return result, file.Filename, true
}

// configFromQuery builds a conversion configuration from request query
// parameters, leaving defaults in place for anything absent.
func configFromQuery(c *gin.Context) (*convert.Config, error) {
	cfg := convert.DefaultConfig()

	if method := c.Query("method"); method != "" {
		cfg.Method = convert.Method(method)
	}
	if bpm := c.Query("bpm"); bpm != "" {
		v, err := strconv.ParseFloat(bpm, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bpm %q", bpm)
		}
		cfg.BPMOverride = v
	}
	if steps := c.Query("max_steps"); steps != "" {
		v, err := strconv.Atoi(steps)
		if err != nil {
			return nil, fmt.Errorf("invalid max_steps %q", steps)
		}
		cfg.MaxSteps = v
	}
	if threshold := c.Query("threshold_db"); threshold != "" {
		v, err := strconv.ParseFloat(threshold, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold_db %q", threshold)
		}
		cfg.ThresholdDB = v
	}
	if duration := c.Query("min_note_duration"); duration != "" {
		v, err := strconv.ParseFloat(duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid min_note_duration %q", duration)
		}
		cfg.MinNoteDuration = v
	}
	if enhance := c.Query("harmonic_enhancement"); enhance != "" {
		v, err := strconv.ParseBool(enhance)
		if err != nil {
			return nil, fmt.Errorf("invalid harmonic_enhancement %q", enhance)
		}
		cfg.HarmonicEnhancement = v
	}

	return cfg, nil
}

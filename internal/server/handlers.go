package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"subdetx/internal/convert"
	"subdetx/internal/history"
	"subdetx/internal/logging"
	"subdetx/internal/staging"
	"subdetx/internal/textutil"
)

const (
	fieldSubtitles = "subtitles"
	fieldVideoPath = "videoPath"
	fieldAudioPath = "audioPath"

	maxFieldBytes    = 4096
	defaultListLimit = 20
	maxListLimit     = 500
)

// upload is the parsed multipart form of POST /convert.
type upload struct {
	subtitleName string
	subtitlePath string
	subtitleSize int64
	videoPath    string
	audioPath    string
}

// ConversionsResponse is the payload of GET /api/conversions.
type ConversionsResponse struct {
	Conversions []history.Conversion `json:"conversions"`
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConversions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxListLimit)
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, ConversionsResponse{Conversions: []history.Conversion{}})
		return
	}
	rows, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.log(r.Context()).Error("history list failed", logging.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if rows == nil {
		rows = []history.Conversion{}
	}
	writeJSON(w, http.StatusOK, ConversionsResponse{Conversions: rows})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	logger := s.log(r.Context())
	requestID, _ := logging.RequestIDFromContext(r.Context())

	if limit := s.cfg.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	dir, err := staging.NewRequestDir(s.cfg.Paths.StagingDir, requestID)
	if err != nil {
		logging.ErrorWithContext(logger, "staging directory unavailable", "staging_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.staging_dir permissions"),
			logging.String(logging.FieldImpact, "upload rejected"),
		)
		writeText(w, http.StatusInternalServerError, "Error processing file")
		return
	}
	defer func() {
		if err := dir.Remove(); err != nil {
			logging.WarnWithContext(logger, "failed to remove request staging directory", "staging_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.staging_dir permissions"),
				logging.String(logging.FieldImpact, "removed by the next startup cleanup"),
			)
		}
	}()

	form, err := readUpload(r, dir)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds %d MB limit", s.cfg.Server.MaxUploadMB))
			return
		}
		logging.WarnWithContext(logger, "malformed upload", "upload_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "send multipart/form-data"),
			logging.String(logging.FieldImpact, "request rejected"),
		)
		writeText(w, http.StatusBadRequest, "Invalid upload: expected multipart form data")
		return
	}
	if form.subtitlePath == "" {
		writeText(w, http.StatusBadRequest, "Subtitle file is required")
		return
	}
	if strings.TrimSpace(form.videoPath) == "" {
		writeText(w, http.StatusBadRequest, "Video path is required")
		return
	}

	logger.Info("upload received",
		logging.String(logging.FieldEventType, "upload_received"),
		logging.String("file", form.subtitleName),
		logging.Int64("upload_bytes", form.subtitleSize),
		logging.String("video_path", form.videoPath),
		logging.String("audio_path", form.audioPath),
	)

	result, convErr := s.runConversion(r.Context(), form)
	s.record(r.Context(), form, result, time.Since(started), convErr)

	if convErr != nil {
		status, message := statusFor(convErr)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
				logging.Error(convErr),
				logging.String("kind", convert.KindOf(convErr).String()),
			)
		} else {
			logging.WarnWithContext(logger, "conversion rejected", "conversion_rejected",
				logging.Error(convErr),
				logging.String("kind", convert.KindOf(convErr).String()),
				logging.String(logging.FieldImpact, "no document returned"),
			)
		}
		writeText(w, status, message)
		return
	}

	name := textutil.DETXName(form.subtitleName)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Document)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Document); err != nil {
		logger.Debug("client went away during download", logging.Error(err))
	}
}

func (s *Server) runConversion(ctx context.Context, form upload) (*convert.Result, error) {
	if timeout := s.cfg.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	f, err := os.Open(form.subtitlePath)
	if err != nil {
		return nil, fmt.Errorf("open staged upload: %w", err)
	}
	defer f.Close()

	return s.converter.Convert(ctx, convert.Request{
		Subtitles: f,
		VideoPath: form.videoPath,
		AudioPath: form.audioPath,
		Name:      form.subtitleName,
	})
}

func (s *Server) record(ctx context.Context, form upload, result *convert.Result, elapsed time.Duration, convErr error) {
	if s.history == nil {
		return
	}
	row := history.FromOutcome(history.Input{
		Source:       history.SourceHTTP,
		SubtitleName: form.subtitleName,
		VideoPath:    form.videoPath,
		AudioPath:    form.audioPath,
	}, result, elapsed, convErr)
	// Recording must not fail just because the request context was canceled.
	if err := s.history.Record(context.WithoutCancel(ctx), row); err != nil {
		logging.WarnWithContext(s.log(ctx), "failed to record conversion", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.data_dir and the history database"),
			logging.String(logging.FieldImpact, "conversion missing from history"),
		)
		return
	}
	s.log(ctx).Debug("conversion recorded", logging.String(logging.FieldConversionID, row.ID))
}

// readUpload streams the multipart body. The subtitles part is written into
// dir; videoPath and audioPath may be plain values or file parts, in which
// case the client file name is the reference.
func readUpload(r *http.Request, dir *staging.RequestDir) (upload, error) {
	var form upload
	reader, err := r.MultipartReader()
	if err != nil {
		return form, err
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return form, err
		}
		if err := readPart(part, dir, &form); err != nil {
			_ = part.Close()
			return form, err
		}
		_ = part.Close()
	}
}

func readPart(part *multipart.Part, dir *staging.RequestDir, form *upload) error {
	switch part.FormName() {
	case fieldSubtitles:
		if part.FileName() == "" || form.subtitlePath != "" {
			_, err := io.Copy(io.Discard, part)
			return err
		}
		path, n, err := dir.Save(part.FileName(), part)
		if err != nil {
			return err
		}
		form.subtitleName = part.FileName()
		form.subtitlePath = path
		form.subtitleSize = n
	case fieldVideoPath:
		value, err := partValue(part)
		if err != nil {
			return err
		}
		form.videoPath = value
	case fieldAudioPath:
		value, err := partValue(part)
		if err != nil {
			return err
		}
		form.audioPath = value
	default:
		_, err := io.Copy(io.Discard, part)
		return err
	}
	return nil
}

func partValue(part *multipart.Part) (string, error) {
	if name := part.FileName(); name != "" {
		_, err := io.Copy(io.Discard, part)
		return name, err
	}
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// statusFor maps a conversion error to an HTTP status and a client message.
func statusFor(err error) (int, string) {
	switch convert.KindOf(err) {
	case convert.KindPrecondition:
		if errors.Is(err, convert.ErrMissingVideo) {
			return http.StatusBadRequest, "Video path is required"
		}
		return http.StatusBadRequest, "Subtitle file is required"
	case convert.KindParse:
		return http.StatusUnprocessableEntity, "Error processing file: " + err.Error()
	case convert.KindCanceled:
		return http.StatusServiceUnavailable, "Conversion timed out"
	default:
		return http.StatusInternalServerError, "Error processing file"
	}
}

func (s *Server) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, s.logger)
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

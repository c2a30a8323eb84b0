package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrWong99/digitspan/internal/digits"
	"github.com/MrWong99/digitspan/internal/grade"
	"github.com/MrWong99/digitspan/internal/observe"
	"github.com/MrWong99/digitspan/pkg/provider/asr"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 1 << 20

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

// ParseResponse is returned by POST /v1/parse.
type ParseResponse struct {
	Digits   []int  `json:"digits"`
	Strategy string `json:"strategy"`
	Language string `json:"language"`
}

// GradeRequest is the body of POST /v1/grade.
type GradeRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
	Expected   []int  `json:"expected"`
}

// GradeResponse is returned by POST /v1/grade.
type GradeResponse struct {
	Digits  []int         `json:"digits"`
	Correct bool          `json:"correct"`
	Outcome grade.Outcome `json:"outcome"`
}

// RecognizeResponse is returned by POST /v1/recognize. Correct and Outcome
// are only present when the request carried an expected sequence.
type RecognizeResponse struct {
	Transcript string        `json:"transcript"`
	Digits     []int         `json:"digits"`
	Strategy   string        `json:"strategy"`
	Language   string        `json:"language"`
	Correct    *bool         `json:"correct,omitempty"`
	Outcome    grade.Outcome `json:"outcome,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !s.decode(w, r, &req) {
		return
	}

	res := s.analyzer.Analyze(req.Transcript, req.Language)
	writeJSON(w, http.StatusOK, ParseResponse{
		Digits:   res.Digits,
		Strategy: string(res.Strategy),
		Language: string(res.Language),
	})
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := grade.CheckSequence(req.Expected); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("expected: %v", err))
		return
	}

	res := s.analyzer.Analyze(req.Transcript, req.Language)
	verdict := grade.Compare(req.Expected, res.Digits)
	s.metrics.RecordGrade(r.Context(), string(verdict.Outcome))
	s.saveAnswer(r, req.Transcript, res, req.Expected, verdict)

	writeJSON(w, http.StatusOK, GradeResponse{
		Digits:  res.Digits,
		Correct: verdict.Correct,
		Outcome: verdict.Outcome,
	})
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "speech recognition is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeBodyError(w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var expected []int
	if raw := r.FormValue("expected"); raw != "" {
		seq, err := grade.ParseSequence(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("expected: %v", err))
			return
		}
		expected = seq
	}

	file, hdr, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	language := s.resolveLanguage(r.FormValue("language"))
	text, err := s.transcriber.Transcribe(r.Context(), asr.Request{
		Audio:    audio,
		Filename: hdr.Filename,
		Language: language,
	})
	switch {
	case errors.Is(err, asr.ErrEmptyAudio):
		writeError(w, http.StatusBadRequest, "audio file is empty")
		return
	case err != nil:
		observe.Logger(r.Context()).Warn("speech recognition failed", "language", language, "err", err)
		writeError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	res := s.analyzer.Analyze(text, language)
	resp := RecognizeResponse{
		Transcript: text,
		Digits:     res.Digits,
		Strategy:   string(res.Strategy),
		Language:   string(res.Language),
	}
	if expected != nil {
		verdict := grade.Compare(expected, res.Digits)
		s.metrics.RecordGrade(r.Context(), string(verdict.Outcome))
		s.saveAnswer(r, text, res, expected, verdict)
		resp.Correct = &verdict.Correct
		resp.Outcome = verdict.Outcome
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resolveLanguage(language string) string {
	if lr, ok := s.analyzer.(LanguageResolver); ok {
		return lr.ResolveLanguage(language)
	}
	return language
}

func (s *Server) saveAnswer(r *http.Request, transcript string, res digits.Result, expected []int, verdict grade.Result) {
	if s.answers == nil {
		return
	}
	err := s.answers.SaveAnswer(Answer{
		Time:       time.Now().UTC(),
		Route:      r.Pattern,
		Language:   string(res.Language),
		Transcript: transcript,
		Expected:   expected,
		Digits:     res.Digits,
		Verdict:    verdict,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("answer log write failed", "err", err)
	}
}

// decode reads a size-limited JSON body into v. On failure it writes the
// error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBodyError(w, err)
		return false
	}
	return true
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

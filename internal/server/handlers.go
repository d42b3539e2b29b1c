package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"echosync/internal/cases"
	"echosync/internal/logging"
	"echosync/internal/textutil"
)

const maxUploadBytes = cases.MaxVideoSizeBytes + 1<<20

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listCases(w, r)
	case http.MethodPost:
		s.createCase(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listCases(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	query := r.URL.Query().Get("q")
	filtered := make([]*cases.Case, 0, len(list))
	for _, record := range list {
		if record.Matches(query) {
			filtered = append(filtered, record)
		}
	}
	cases.SortByUpdatedDesc(filtered)
	s.writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	record, videoName, videoSize, video, err := decodeCreateRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if video != nil {
		defer video.Close()
	}

	if err := cases.ValidateUpload(record, videoName, videoSize); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record.CaseID = "c-" + uuid.NewString()
	record.Origin = cases.OriginRemote

	if video != nil {
		videoURL, err := s.saveVideo(record.CaseID, videoName, video)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		record.VideoURL = videoURL
	}

	saved, err := s.store.Save(r.Context(), record)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Placeholder so the results endpoint resolves before analysis runs.
	if err := s.store.SaveResult(r.Context(), saved.CaseID, &cases.Result{CaseID: saved.CaseID}); err != nil {
		s.logger.Warn("placeholder result write failed", logging.Args(
			logging.String("case_id", saved.CaseID),
			logging.Error(err),
		)...)
	}

	s.logger.Info("case created", logging.Args(
		logging.String("case_id", saved.CaseID),
		logging.String("medical_id", saved.MedicalID),
		logging.Bool("video", video != nil),
	)...)
	s.writeJSON(w, http.StatusCreated, map[string]string{"caseId": saved.CaseID})
}

// decodeCreateRequest accepts either a multipart upload with metadata fields
// plus an optional video part, or a plain JSON body.
func decodeCreateRequest(r *http.Request) (*cases.Case, string, int64, io.ReadCloser, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType != "multipart/form-data" {
		var record cases.Case
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&record); err != nil {
			return nil, "", 0, nil, errors.New("invalid case payload")
		}
		return &record, "", 0, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", 0, nil, errors.New("invalid multipart payload")
	}
	record := &cases.Case{
		PatientName:   r.FormValue("patientName"),
		MedicalID:     r.FormValue("medicalId"),
		ExamDate:      r.FormValue("examDate"),
		ClinicalNotes: r.FormValue("clinicalNotes"),
		Gender:        r.FormValue("gender"),
	}
	if age := r.FormValue("age"); age != "" {
		parsed, err := strconv.Atoi(age)
		if err != nil {
			return nil, "", 0, nil, errors.New("invalid age")
		}
		record.Age = parsed
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return record, "", 0, nil, nil
		}
		return nil, "", 0, nil, errors.New("invalid video upload")
	}
	return record, header.Filename, header.Size, file, nil
}

func (s *Server) saveVideo(caseID, videoName string, video io.Reader) (string, error) {
	name := caseID + strings.ToLower(filepath.Ext(textutil.SanitizeFileName(videoName)))
	dest := filepath.Join(s.cfg.Paths.MediaDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, video); err != nil {
		return "", err
	}
	return "/videos/" + name, nil
}

func (s *Server) handleCaseItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/cases/")
	caseID, sub, _ := strings.Cut(rest, "/")
	if caseID == "" {
		s.writeError(w, http.StatusNotFound, "Case not found")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.getCase(w, r, caseID)
	case sub == "" && r.Method == http.MethodDelete:
		s.deleteCase(w, r, caseID)
	case sub == "results" && r.Method == http.MethodGet:
		s.getResults(w, r, caseID)
	case sub == "analyze" && r.Method == http.MethodPost:
		s.analyzeCase(w, r, caseID)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getCase(w http.ResponseWriter, r *http.Request, caseID string) {
	record, err := s.store.Get(r.Context(), caseID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "Case not found")
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) deleteCase(w http.ResponseWriter, r *http.Request, caseID string) {
	removed, err := s.store.Remove(r.Context(), caseID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "Case not found")
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request, caseID string) {
	result, err := s.store.GetResult(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Results not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		s.writeError(w, http.StatusNotFound, "Results not found")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) analyzeCase(w http.ResponseWriter, r *http.Request, caseID string) {
	result, err := s.analyzer.Complete(r.Context(), s.store, caseID)
	if err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Case not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePatients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byMedicalID := make(map[string]*cases.Patient)
	order := make([]string, 0, len(list))
	for _, record := range list {
		if record.MedicalID == "" {
			continue
		}
		patient, ok := byMedicalID[record.MedicalID]
		if !ok {
			patient = &cases.Patient{
				MedicalID:   record.MedicalID,
				PatientName: record.PatientName,
			}
			byMedicalID[record.MedicalID] = patient
			order = append(order, record.MedicalID)
		}
		patient.CaseCount++
	}

	patients := make([]*cases.Patient, 0, len(order))
	for _, id := range order {
		patients = append(patients, byMedicalID[id])
	}
	s.writeJSON(w, http.StatusOK, patients)
}

package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
)

// ── Grades ──

// PatchGradeRequest partial grade update. Keys outside the grade field
// allow-list are dropped while decoding; a JSON null clears a score.
type PatchGradeRequest struct {
	Scores  map[string]*float64 `json:"-" binding:"dive,omitnil,score"`
	Version *int                `json:"-" binding:"omitempty,min=1"`
}

// UnmarshalJSON decodes a flat object such as {"lm1_sum": 80, "final_score": 80}
func (r *PatchGradeRequest) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	if r.Scores, err = decodeScores(raw); err != nil {
		return err
	}
	r.Version, err = decodeVersion(raw)
	return err
}

// UpsertGradeRequest creates or replaces fields of the grade of one student
type UpsertGradeRequest struct {
	StudentID string              `json:"-" binding:"required,uuid"`
	Scores    map[string]*float64 `json:"-" binding:"dive,omitnil,score"`
}

// UnmarshalJSON accepts student_id (or studentId) next to the score fields
func (r *UpsertGradeRequest) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	for _, key := range []string{"student_id", "studentId"} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, &r.StudentID); err != nil {
				return fmt.Errorf("%s harus berupa teks", key)
			}
			break
		}
	}
	r.Scores, err = decodeScores(raw)
	return err
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("body harus berupa objek JSON")
	}
	return raw, nil
}

func decodeScores(raw map[string]json.RawMessage) (map[string]*float64, error) {
	scores := make(map[string]*float64)
	for key, value := range raw {
		if !grading.IsGradeField(key) {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			scores[key] = nil
			continue
		}
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			return nil, fmt.Errorf("%s harus berupa angka atau null", key)
		}
		scores[key] = &f
	}
	return scores, nil
}

func decodeVersion(raw map[string]json.RawMessage) (*int, error) {
	value, ok := raw["version"]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil, nil
	}
	var v int
	if err := json.Unmarshal(value, &v); err != nil {
		return nil, fmt.Errorf("version harus berupa bilangan bulat")
	}
	return &v, nil
}

// ── Responses ──

// GradeResponse grade record; scores are flattened into the top-level object
type GradeResponse struct {
	ID        string
	StudentID string
	Scores    grading.Scores
	Version   int
	UpdatedAt string
}

// MarshalJSON writes every grade field, absent scores as null
func (r GradeResponse) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Scores)+4)
	for _, f := range grading.Fields() {
		out[f] = r.Scores[f]
	}
	out["id"] = r.ID
	out["student_id"] = r.StudentID
	out["version"] = r.Version
	out["updated_at"] = r.UpdatedAt
	return json.Marshal(out)
}

// UnmarshalJSON reads the flattened form written by MarshalJSON
func (r *GradeResponse) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	scores, err := decodeScores(raw)
	if err != nil {
		return err
	}
	r.Scores = grading.Scores(scores)
	for key, dst := range map[string]*string{"id": &r.ID, "student_id": &r.StudentID, "updated_at": &r.UpdatedAt} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("%s harus berupa teks", key)
			}
		}
	}
	version, err := decodeVersion(raw)
	if err != nil {
		return err
	}
	if version != nil {
		r.Version = *version
	}
	return nil
}

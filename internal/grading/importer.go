package grading

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// ImportHomeworkFile creates every homework of a JSON file (a list of
// homework objects) on behalf of teacher and records the file's hash under
// name. A file whose name was imported before is refused with ErrConflict,
// whether or not its content changed, so existing results keep their questions.
func (s *Service) ImportHomeworkFile(ctx context.Context, teacher *model.User, name string, data []byte) ([]int64, error) {
	if err := requireTeacher(teacher); err != nil {
		return nil, err
	}
	hash := sha256sum(data)
	stored, err := s.store.GetImportedFileHash(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check import status for %s: %w", name, err)
	}
	if stored == hash {
		return nil, fmt.Errorf("%w: %s already imported", ErrConflict, name)
	}
	if stored != "" {
		return nil, fmt.Errorf("%w: %s changed since last import", ErrConflict, name)
	}

	var homeworks []model.HomeworkImport
	if err := json.Unmarshal(data, &homeworks); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrValidation, name, err)
	}
	ids := make([]int64, 0, len(homeworks))
	for i, in := range homeworks {
		hw, err := s.CreateHomework(ctx, teacher, in)
		if err != nil {
			return ids, fmt.Errorf("homework %d of %s: %w", i+1, name, err)
		}
		ids = append(ids, hw.ID)
	}
	if err := s.store.SetImportedFileHash(ctx, name, hash); err != nil {
		return ids, fmt.Errorf("record import for %s: %w", name, err)
	}
	slog.Info("imported homework file", "name", name, "count", len(ids), "teacher_id", teacher.ID)
	return ids, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

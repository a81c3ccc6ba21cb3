package quiz

import "quizgen/internal/batch"

// CanManage reports whether a teacher may manage a quiz. Only the owner
// can, regardless of batch overlap.
func CanManage(teacherID string, q *Quiz) error {
	if q.TeacherID != teacherID {
		return ErrForbidden
	}
	return nil
}

// CanAccess reports whether a student may view or submit a quiz. The
// same check covers both intents.
func CanAccess(studentBatch string, q *Quiz) error {
	if studentBatch == "" {
		return ErrNoBatch
	}
	if !batch.Contains(q.Batches, studentBatch) {
		return ErrForbidden
	}
	return nil
}

// ValidateTargetBatches checks a quiz's target batches against the
// owning teacher's batches. The target must be non-empty and a subset
// of what the teacher is assigned to.
func ValidateTargetBatches(teacherBatches, target []string) error {
	if len(target) == 0 {
		return ErrNoTargetBatches
	}
	if len(teacherBatches) == 0 {
		return ErrForbidden
	}
	if !batch.Subset(teacherBatches, target) {
		return ErrForbidden
	}
	return nil
}

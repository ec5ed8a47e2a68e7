package sqlite

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// SaveQuestions persists a batch of generated questions and their options in
// one transaction. Options keep their generated order, starting at 1.
func (s *Store) SaveQuestions(ctx context.Context, subtopicID int64, questions []domain.GeneratedQuestion) ([]domain.StoredQuestion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	stored := make([]domain.StoredQuestion, 0, len(questions))
	for _, q := range questions {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_questions (subtopic_id, text, difficulty, question_type,
				correct_feedback, incorrect_feedback, detailed_explanation, points,
				generated_by_ai, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			subtopicID, q.Text, string(q.Difficulty), domain.QuestionTypeMultipleChoice,
			q.CorrectFeedback, q.IncorrectFeedback, q.DetailedExplanation, q.Points, now)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("question id: %w", err)
		}

		for j, o := range q.Options {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO answer_options (question_id, text, is_correct, explanation, orden)
				VALUES (?, ?, ?, ?, ?)`,
				id, o.Text, o.IsCorrect, o.Explanation, j+1)
			if err != nil {
				return nil, fmt.Errorf("insert option: %w", err)
			}
		}

		stored = append(stored, domain.StoredQuestion{ID: id, SubtopicID: subtopicID, Question: q, CreatedAt: now})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit questions: %w", err)
	}
	return stored, nil
}

// ListQuestions returns every stored question of a subtopic, oldest first,
// with options in display order.
func (s *Store) ListQuestions(ctx context.Context, subtopicID int64) ([]domain.StoredQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, difficulty, correct_feedback, incorrect_feedback,
			detailed_explanation, points, created_at
		FROM quiz_questions
		WHERE subtopic_id = ?
		ORDER BY id`, subtopicID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	var out []domain.StoredQuestion
	index := make(map[int64]int)
	for rows.Next() {
		sq := domain.StoredQuestion{SubtopicID: subtopicID}
		var difficulty string
		if err := rows.Scan(&sq.ID, &sq.Question.Text, &difficulty, &sq.Question.CorrectFeedback,
			&sq.Question.IncorrectFeedback, &sq.Question.DetailedExplanation, &sq.Question.Points, &sq.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question: %w", err)
		}
		sq.Question.Difficulty = domain.Difficulty(difficulty)
		sq.Question.Options = []domain.AnswerOption{}
		index[sq.ID] = len(out)
		out = append(out, sq)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	optRows, err := s.db.QueryContext(ctx, `
		SELECT o.question_id, o.text, o.is_correct, o.explanation
		FROM answer_options o
		JOIN quiz_questions q ON q.id = o.question_id
		WHERE q.subtopic_id = ?
		ORDER BY o.question_id, o.orden`, subtopicID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var qid int64
		var o domain.AnswerOption
		if err := optRows.Scan(&qid, &o.Text, &o.IsCorrect, &o.Explanation); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[qid]; ok {
			out[i].Question.Options = append(out[i].Question.Options, o)
		}
	}
	return out, optRows.Err()
}

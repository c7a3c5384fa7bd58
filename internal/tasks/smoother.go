package tasks

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SmoothingWorker rewrites raw answers so they read naturally inside a
// story sentence. It consumes the smoothing queue and writes the result
// back to the answer; the raw text is never modified.
type SmoothingWorker struct {
	db    *gorm.DB
	queue *RabbitMQQueue
}

func NewSmoothingWorker(db *gorm.DB, queue *RabbitMQQueue) *SmoothingWorker {
	return &SmoothingWorker{db: db, queue: queue}
}

// Run blocks consuming smoothing tasks until the channel closes.
func (w *SmoothingWorker) Run() error {
	deliveries, err := w.queue.Consume()
	if err != nil {
		return err
	}

	log.Info().Str("queue", SmoothingQueue).Msg("smoothing worker started")
	for d := range deliveries {
		var task SmoothingTask
		if err := json.Unmarshal(d.Body, &task); err != nil {
			log.Warn().Err(err).Msg("dropping malformed smoothing task")
			d.Nack(false, false)
			continue
		}

		if err := w.smooth(task.AnswerID); err != nil {
			// one requeue, then give up; the raw text stays authoritative
			if d.Redelivered {
				log.Error().Err(err).Uint("answer_id", task.AnswerID).Msg("smoothing failed twice, dropping task")
				d.Nack(false, false)
			} else {
				log.Warn().Err(err).Uint("answer_id", task.AnswerID).Msg("smoothing failed, requeueing")
				d.Nack(false, true)
			}
			continue
		}
		d.Ack(false)
	}
	return nil
}

func (w *SmoothingWorker) smooth(answerID uint) error {
	var answer models.Answer
	if err := w.db.First(&answer, answerID).Error; err != nil {
		return err
	}
	if answer.SmoothedText != "" {
		return nil
	}

	smoothed := SmoothText(answer.Text)
	if smoothed == answer.Text {
		return nil
	}
	return w.db.Model(&answer).Update("smoothed_text", smoothed).Error
}

// SmoothText normalizes an answer for in-sentence display: trims
// whitespace, strips terminal punctuation, and lowercases a leading
// sentence-case capital. Single words stay untouched so proper nouns
// survive, as do phrases with any capitals past the first rune.
func SmoothText(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimRight(s, ".!?,;")

	if !strings.ContainsRune(s, ' ') {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(first) {
		return s
	}
	rest := s[size:]
	if rest != strings.ToLower(rest) {
		return s
	}
	return string(unicode.ToLower(first)) + rest
}

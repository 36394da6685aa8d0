package migrations

import (
	"context"

	"classquiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// SeedTopic is the single topic available out of the box.
const SeedTopic = "Business Plan"

func seedData(ctx context.Context, db *bun.DB) error {
	count, err := db.NewSelect().
		Model((*domain.User)(nil)).
		Where("username = ?", "teacher").
		Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		teacher := &domain.User{Username: "teacher", Password: "demo123", Role: "teacher"}
		if _, err := db.NewInsert().Model(teacher).Exec(ctx); err != nil {
			return err
		}
	}

	count, err = db.NewSelect().
		Model((*domain.Question)(nil)).
		Where("topic = ?", SeedTopic).
		Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	questions := SeedQuestions()
	_, err = db.NewInsert().Model(&questions).Exec(ctx)
	return err
}

func unseedData(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDelete().
		Model((*domain.Question)(nil)).
		Where("topic = ?", SeedTopic).
		Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewDelete().
		Model((*domain.User)(nil)).
		Where("username = ?", "teacher").
		Exec(ctx)
	return err
}

// SeedQuestions returns the Business Plan question set (German). Also used by
// tests and the in-memory store.
func SeedQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:          "Womit beginnt eine Geschäftsidee im Kern?",
			CorrectAnswer: "C",
			SkillTag:      "Geschäftsidee",
			Topic:         SeedTopic,
			Options:       "A) Mit einem schönen Produkt|B) Mit einer hohen Gewinnerwartung|C) Mit einem Kundenproblem|D) Mit Werbung",
		},
		{
			Text:          "Was bedeutet \"Value Proposition\"?",
			CorrectAnswer: "B",
			SkillTag:      "Value Proposition",
			Topic:         SeedTopic,
			Options:       "A) Das Logo des Unternehmens|B) Der zentrale Nutzen für den Kunden|C) Die Kostenstruktur des Unternehmens|D) Die Wettbewerber",
		},
		{
			Text:          "Wozu dient das Business Model Canvas?",
			CorrectAnswer: "B",
			SkillTag:      "Business Model Canvas",
			Topic:         SeedTopic,
			Options:       "A) Zur Berechnung von Steuern|B) Zur strukturierten und visuellen Darstellung des Geschäftsmodells|C) Zur Produktgestaltung|D) Zur Erstellung eines Vertrags",
		},
		{
			Text:          "Was sind \"Revenue Streams\"?",
			CorrectAnswer: "C",
			SkillTag:      "Revenue Streams",
			Topic:         SeedTopic,
			Options:       "A) Die Ausgaben eines Unternehmens|B) Die Mitarbeitenden|C) Die Einnahmequellen eines Unternehmens|D) Die Kundensegmente",
		},
		{
			Text:          "Warum ist das Gründerteam im Businessplan wichtig?",
			CorrectAnswer: "B",
			SkillTag:      "Gründerteam",
			Topic:         SeedTopic,
			Options:       "A) Weil viele Gründer immer besser sind|B) Weil Investoren zuerst auf die Menschen schauen|C) Weil es gesetzlich vorgeschrieben ist|D) Weil das Team für Werbung zuständig ist",
		},
	}
}

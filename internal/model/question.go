package model

import (
	"errors"
	"fmt"
)

var ErrInvalidQuestion = errors.New("invalid question")

type Choice struct {
	ID    RemoteID `json:"id"`
	Title string   `json:"title"`
}

type Question struct {
	ID            RemoteID `json:"id"`
	Title         string   `json:"title"`
	Choices       []Choice `json:"choices"`
	CorrectChoice Choice   `json:"correctChoice"`
}

// Validate 正确选项必须恰好对应一个选项
func (q Question) Validate() error {
	if len(q.Choices) == 0 {
		return fmt.Errorf("%w: question %s has no choices", ErrInvalidQuestion, q.ID)
	}
	matches := 0
	seen := make(map[RemoteID]bool, len(q.Choices))
	for _, c := range q.Choices {
		if seen[c.ID] {
			return fmt.Errorf("%w: question %s has duplicate choice %s", ErrInvalidQuestion, q.ID, c.ID)
		}
		seen[c.ID] = true
		if c.ID == q.CorrectChoice.ID {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("%w: question %s correct choice %q matches %d choices", ErrInvalidQuestion, q.ID, q.CorrectChoice.ID, matches)
	}
	return nil
}

func (q Question) Choice(id RemoteID) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

type AnsweredQuestion struct {
	Question
	SelectedChoice *Choice `json:"selectedChoice"`
}

func (a AnsweredQuestion) Answered() bool {
	return a.SelectedChoice != nil
}

func (a AnsweredQuestion) Correct() bool {
	return a.SelectedChoice != nil && a.SelectedChoice.ID == a.CorrectChoice.ID
}

package services

import (
	"context"

	"quickplan/app/models"
	"quickplan/app/store"
)

var exampleTasks = []models.TaskInput{
	{Title: "Initial QuickPlan setup", Hours: 4, Notes: "Complete system setup", Resource: "andyjara-dev"},
	{Title: "User interface design", Hours: 8, Notes: "Responsive UI/UX", Resource: "María González"},
	{Title: "Spreadsheet export", Hours: 6, Notes: "Core export feature", Resource: "Carlos López"},
}

// SeedExamples inserts a few example tasks when the store is empty and
// reports how many were created.
func (s *TaskService) SeedExamples(ctx context.Context) (int, error) {
	rows, err := s.store.Scan(ctx, store.All())
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return 0, nil
	}
	for i, in := range exampleTasks {
		if _, err := s.CreateTask(ctx, in); err != nil {
			return i, err
		}
	}
	s.logger.Info("inserted example tasks", "count", len(exampleTasks))
	return len(exampleTasks), nil
}

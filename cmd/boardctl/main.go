package main

import (
	"os"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"

	"aura-api/api"
	"aura-api/board"
	"aura-api/domain"
)

func main() {
	boards := func(s domain.Settings, baseURL string) (board.API, error) {
		return api.KanbanBoards(kanbanOptions(baseURL)...)(s)
	}
	if err := newRootCmd(os.Stdout, boards).Execute(); err != nil {
		log.Fatal(err)
	}
}

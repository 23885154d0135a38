package api

import (
	"birdgate/app/cfg"
	"birdgate/app/database"
	"birdgate/app/scraper"
	"birdgate/app/session"
)

type Handler struct {
	service      *scraper.Service
	store        *session.Store
	bootstrapper *session.Bootstrapper
	stats        database.StatsRepository
	cfg          *cfg.Cfg
}

type createPostRequest struct {
	Text string `json:"text" binding:"required"`
}

type reloginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

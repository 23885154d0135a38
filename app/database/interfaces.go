package database

type PostRepository interface {
	UpsertPost(post ArchivedPost) error
	GetPostCount() (int, error)
	GetRecentPosts(limit int) ([]ArchivedPost, error)
}

type AttemptRepository interface {
	RecordBootstrapAttempt(mode string, succeeded bool, cause, message string) error
	GetLastAttempt() (*BootstrapAttempt, error)
}

type StatsRepository interface {
	GetStats() (*ArchiveStats, error)
}

package config

type WorkerKeyStruct struct {
	RankRefreshQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RankRefreshQueue: "rank_refresh_queue",
}

package cmd

var (
	configPath           string
	networkSubgraphURL   string
	ensSubgraphURL       string
	rpcURL               string
	analyticsSubgraphURL string
	verbosity            int
	logFile              string
	noColor              bool

	subinfoHours       int
	indexerinfoHours   int
	indexerinfoRewards bool
)

var (
	configPathDefault           = ""
	networkSubgraphURLDefault   = ""
	ensSubgraphURLDefault       = ""
	rpcURLDefault               = ""
	analyticsSubgraphURLDefault = ""
	logFileDefault              = ""
	noColorDefault              = false

	hoursDefault   = 48
	rewardsDefault = false
)

var Version = "dev"

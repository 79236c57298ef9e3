package scheduler

// Individual: 一种完整的游览顺序，是候选地点下标的一个排列
type Individual []int

// DaySplit: 按每日时间预算对 Individual 贪心切分得到的每日游览列表
type DaySplit [][]int

// 遗传算法参数
type Parameters struct {
	PopulationSize  int     // 种群大小
	MaxGenerations  int     // 最大迭代次数
	CrossoverRate   float64 // 交叉概率
	MutationRate    float64 // 变异概率
	EliteCount      int     // 精英数量
	TournamentSize  int     // 锦标赛规模
	DailyMinutes    int     // 每日可用时间（分钟）
	DayStartMinute  int     // 每天出发的时刻（距 00:00 的分钟数）
	StagnationLimit int     // 连续多少代没有改进就提前停止
	Workers         int     // 并行计算适应度的 goroutine 数量，<= 1 表示串行
	Seed            int64   // 随机种子，0 表示使用当前时间
}

func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:  50,
		MaxGenerations:  100,
		CrossoverRate:   0.7,
		MutationRate:    0.1,
		EliteCount:      2,
		TournamentSize:  3,
		DailyMinutes:    240,
		DayStartMinute:  8 * 60,
		StagnationLimit: 5,
		Workers:         1,
	}
}

// 奖励权重
const (
	daySavedReward   = 200 // 每少用一天
	priorityReward   = 100 // 每访问一个优先地点
	openingReward    = 50  // 每个在营业时间内到达的地点
	travelAllowance  = 30  // 每个地点允许的出行分钟数，超出部分从奖励中扣除
	swapsPerMutation = 2
)

// 提前停止的原因
const (
	StopGenerationLimit = "generation_limit"
	StopStagnation      = "stagnation"
)

// window: 某一天的营业时间 [start, end)，open 为 false 表示当天闭馆
type window struct {
	start int
	end   int
	open  bool
}

// site: 解析后的候选地点，只在 New 中构造一次
type site struct {
	name      string
	row       int // 在输入地点表中的行号
	latitude  float64
	longitude float64
	visit     int
	priority  bool
	windows   [7]window // 以 time.Weekday 为下标
}

// evaluation: 一个 Individual 的适应度及其每日切分
type evaluation struct {
	fitness  float64
	days     DaySplit
	priority int
	opening  int
	travel   int
}

// champion: 迄今为止最好的个体
type champion struct {
	individual Individual
	days       DaySplit
	fitness    float64
	generation int
}

// Progress 每一代结束时报告给观察者的信息
type Progress struct {
	Generation     int     `json:"generation"`
	GenerationBest float64 `json:"generationBest"`
	BestFitness    float64 `json:"bestFitness"`
	Stagnation     int     `json:"stagnation"`
}

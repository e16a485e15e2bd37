package scenario

// File 为场景文件结构。账户、资产与奖励组件均以名称引用，运行时映射为新生成的身份与地址。
type File struct {
	Name     string       `yaml:"name"`
	Accounts []string     `yaml:"accounts"`
	Assets   []AssetSpec  `yaml:"assets"`
	Rewards  []RewardSpec `yaml:"rewards"`
	Steps    []Step       `yaml:"steps"`
}

// AssetSpec 描述待发行的资产。
type AssetSpec struct {
	Name   string `yaml:"name"`
	Issuer string `yaml:"issuer"`
}

// RewardKind 为奖励组件实现方式。
type RewardKind string

const (
	RewardNative RewardKind = "native"
	RewardWasm   RewardKind = "wasm"
)

// RewardSpec 描述待部署的奖励组件。Module 为相对场景文件的 WASM 路径。
type RewardSpec struct {
	Name   string     `yaml:"name"`
	Kind   RewardKind `yaml:"kind"`
	Module string     `yaml:"module"`
}

// Op 为场景步骤类型。
type Op string

const (
	OpInitialize     Op = "initialize"
	OpSetPause       Op = "set_pause"
	OpMint           Op = "mint"
	OpTrade          Op = "trade"
	OpTradeAndReward Op = "trade_and_reward"
	OpExpectBalance  Op = "expect_balance"
	OpExpectPaused   Op = "expect_paused"
	OpExpectReward   Op = "expect_reward"
)

// Step 为单个场景步骤，未用到的字段留空。
type Step struct {
	Op           Op      `yaml:"op"`
	Caller       string  `yaml:"caller"`
	Signer       string  `yaml:"signer"`
	Trader       string  `yaml:"trader"`
	Recipient    string  `yaml:"recipient"`
	Account      string  `yaml:"account"`
	Asset        string  `yaml:"asset"`
	Reward       string  `yaml:"reward"`
	Value        bool    `yaml:"value"`
	Amount       int64   `yaml:"amount"`
	Fee          int64   `yaml:"fee"`
	RewardAmount int64   `yaml:"reward_amount"`
	ExpectError  *uint32 `yaml:"expect_error"`
}

// Report 为场景执行摘要。
type Report struct {
	Name     string
	Steps    int
	Contract string
}

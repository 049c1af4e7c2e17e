package deploy

// Stage identifies one step of the deployment pipeline. Stages run
// strictly in sequence; the first failure skips everything after it.
type Stage int

const (
	StageIdle Stage = iota
	StageLoadConfig
	StagePromptAndValidate
	StageSaveConfig
	StageConnect
	StageSync
	StageProvision
	StageLaunch
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoadConfig:
		return "load config"
	case StagePromptAndValidate:
		return "validate"
	case StageSaveConfig:
		return "save config"
	case StageConnect:
		return "connect"
	case StageSync:
		return "sync"
	case StageProvision:
		return "provision"
	case StageLaunch:
		return "launch"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

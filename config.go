package amfcontext

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/amfcontext/amf"
)

const (
	// EnvVarICD names the Vulkan ICD (driver descriptor) file which
	// has to be used together with AMF.
	EnvVarICD = "ALVR_AMF_ICD"

	EnvVarVulkanDriverFiles  = "VK_DRIVER_FILES"
	EnvVarVulkanICDFilenames = "VK_ICD_FILENAMES"
)

type Config struct {
	LibraryName      string
	InitFunctionName string
	Version          uint64

	// ICDEnvVar is read once, during initialization.
	ICDEnvVar string

	// DriverEnvVars are pointed at the ICD file from initialization
	// until the first Initialize call.
	DriverEnvVars []string
}

func DefaultConfig() Config {
	return Config{
		LibraryName:      amf.LibraryName,
		InitFunctionName: amf.InitFunctionName,
		Version:          amf.FullVersion,
		ICDEnvVar:        EnvVarICD,
		DriverEnvVars: []string{
			EnvVarVulkanDriverFiles,
			EnvVarVulkanICDFilenames,
		},
	}
}

func (cfg Config) String() string {
	return spew.Sdump(cfg)
}

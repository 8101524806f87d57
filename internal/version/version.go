package version

// Version is the warpmesh build version, sent to peers in the control channel
// hello. Release builds set it with:
//
//	go build -ldflags="-X 'github.com/BioHazard786/warpmesh/internal/version.Version=v1.0.0'"
var Version = "dev"

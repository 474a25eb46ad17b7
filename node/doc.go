// Package node runs one mesh participant.
//
// A Node owns a mesh controller and the acquisition loop that keeps it
// cycling. Radio control lives in node/mesh; the cycling policy lives in
// node/acquisition.
package node

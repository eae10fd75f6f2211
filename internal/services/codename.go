package services

import (
	"crypto/rand"
	"math/big"
)

var (
	codenameAdjectives = []string{"Agile", "Brave", "Creative", "Dynamic", "Elegant", "Fearless", "Gallant", "Heroic", "Innovative", "Jubilant"}
	codenameNouns      = []string{"Aardvark", "Bison", "Cheetah", "Dolphin", "Eagle", "Falcon", "Gerbil", "Hawk", "Iguana", "Jaguar"}
)

// NewCodename picks an "Adjective Noun" pair for a new project.
func NewCodename() (string, error) {
	a, err := pick(len(codenameAdjectives))
	if err != nil {
		return "", err
	}
	n, err := pick(len(codenameNouns))
	if err != nil {
		return "", err
	}
	return codenameAdjectives[a] + " " + codenameNouns[n], nil
}

func pick(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

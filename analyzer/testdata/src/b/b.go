package b

import "a"

func use() {
	a.Four[uint32]()
	a.Four[bool]() // want `T must be 4 bytes long`
	a.Wrap[[2]uint16]()
	a.Wrap[[3]uint16]() // want `T must be 4 bytes long`
	a.NonZero(1)
	a.NonZero(0) // want `Static assert failed\.`
}

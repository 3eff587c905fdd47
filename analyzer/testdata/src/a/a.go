package a

// Four accepts only 4-byte types.
//
//static:assert (T) sizeof(T) == 4 => "T must be 4 bytes long"
func Four[T any]() {} // want Four:`requires \(T\) sizeof\(T\) == 4`

func NonZero(N uint) uint { // want NonZero:`requires \(N: uint\) N != 0`
	//static:assert (N: uint) N != 0
	return N
}

func Wrap[U any]() { Four[U]() } // want Wrap:`requires \(T\) sizeof`

func hidden[T any]() {
	//static:assert (T) sizeof(T) > 0
}

func use() {
	Four[int32]()
	Four[int64]()    // want `T must be 4 bytes long`
	NonZero(0)       // want `Static assert failed\.`
	hidden[[0]int]() // want `Static assert failed\.`
}

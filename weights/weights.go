package weights

// DefaultCount is the number of primes used for the reference payload.
const DefaultCount = 8

// Vector is an ordered weight payload. Index i holds the gap between the
// i-th and (i+1)-th prime of the generating sequence; the final element is
// always zero.
type Vector []float64

// GeneratePrimes returns the first count primes in ascending order starting
// at 2, found by trial division. A count of zero or less yields an empty
// slice.
func GeneratePrimes(count int) []int {
	if count <= 0 {
		return []int{}
	}

	primes := make([]int, 0, count)
	for n := 2; len(primes) < count; n++ {
		if isPrime(n) {
			primes = append(primes, n)
		}
	}
	return primes
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// Derive computes gap weights from a prime sequence: element i is
// primes[i+1]-primes[i], and the last element is always 0. The output length
// equals the input length.
func Derive(primes []int) Vector {
	weights := make(Vector, len(primes))
	if len(primes) == 0 {
		return weights
	}
	for i := 0; i < len(primes)-1; i++ {
		weights[i] = float64(primes[i+1] - primes[i])
	}
	weights[len(primes)-1] = 0.0
	return weights
}

// Default returns the reference payload derived from the first DefaultCount
// primes: {1,2,2,4,2,4,2,0}.
func Default() Vector {
	return Derive(GeneratePrimes(DefaultCount))
}

package portfolio

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func rawCov(dst *mat.SymDense, x mat.Matrix) {
	stat.CovarianceMatrix(dst, x, nil)
}

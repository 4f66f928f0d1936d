package task

import (
	"iter"
)

// Pair is one sample of a data source. Additional is the truth in training
// and validation, and the sample name at test time.
type Pair struct {
	Data       any
	Additional any
}

// Source is a lazy sequence of samples; a sample error ends the sequence.
type Source = iter.Seq2[Pair, error]

// Generator produces (data, truth) pairs for training and validation.
type Generator interface {
	Generate() (Source, error)
}

// Augmenter produces (data, name) pairs from a serialized test input source,
// usually a folder.
type Augmenter interface {
	Augment(serialized string) (Source, error)
}

// Trainer computes the scalar loss of one replica.
type Trainer interface {
	Train(net Net, prediction, truth any) (any, error)
}

// Evaluator computes one or more metrics of one replica.
type Evaluator interface {
	Eval(net Net, prediction, truth any) (any, error)
}

// Tester renders the result of one test sample.
type Tester interface {
	Test(name, inputs, prediction any) (string, error)
}

// Transformer is optional. It post-processes the tensors of a replica before
// they are recorded.
type Transformer interface {
	Transform(net Net, data, prediction, truth any) (any, any, any)
}

// Specialization is everything a concrete task supplies. Embed Unimplemented
// to only override what the task's modes need.
type Specialization interface {
	Generator
	Augmenter
	Trainer
	Evaluator
	Tester
}

// Unimplemented fails every override point at its first call.
type Unimplemented struct{}

func (Unimplemented) Generate() (Source, error) {
	return nil, &UnimplementedError{
		Capability: "Generate",
		Contract:   "yield (data, truth) pairs for training and validation",
	}
}

func (Unimplemented) Augment(string) (Source, error) {
	return nil, &UnimplementedError{
		Capability: "Augment",
		Contract:   "yield (data, name) pairs from the serialized test inputs",
	}
}

func (Unimplemented) Train(Net, any, any) (any, error) {
	return nil, &UnimplementedError{
		Capability: "Train",
		Contract:   "return the scalar loss of a replica from its net, prediction and truth",
	}
}

func (Unimplemented) Eval(Net, any, any) (any, error) {
	return nil, &UnimplementedError{
		Capability: "Eval",
		Contract:   "return the evaluation metrics of a replica from its net, prediction and truth",
	}
}

func (Unimplemented) Test(any, any, any) (string, error) {
	return "", &UnimplementedError{
		Capability: "Test",
		Contract:   "return a human-readable result from a sample's name, inputs and prediction",
	}
}

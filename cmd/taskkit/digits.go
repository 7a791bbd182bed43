package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/ml/digits"
	"github.com/jonathan/taskkit/internal/observability"
)

var (
	digitsTrainImages string
	digitsTrainLabels string
	digitsTestImages  string
	digitsTestLabels  string
	digitsEpochs      int
	digitsBatchSize   int
	digitsWorkers     int
	digitsLimit       int
	digitsModel       string
	digitsSeed        int64
)

var digitsCmd = &cobra.Command{
	Use:   "digits",
	Short: "Handwritten digit recognition with a small CNN",
}

var digitsTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the digit classifier on IDX (MNIST) files",
	RunE:  runDigitsTrain,
}

var digitsPredictCmd = &cobra.Command{
	Use:   "predict <image>",
	Short: "Predict the digit drawn in a PNG or JPEG image",
	Args:  cobra.ExactArgs(1),
	RunE:  runDigitsPredict,
}

func init() {
	f := digitsTrainCmd.Flags()
	f.StringVar(&digitsTrainImages, "train-images", "", "Training images (default train-images-idx3-ubyte.gz in data_dir)")
	f.StringVar(&digitsTrainLabels, "train-labels", "", "Training labels (default train-labels-idx1-ubyte.gz in data_dir)")
	f.StringVar(&digitsTestImages, "test-images", "", "Test images (default t10k-images-idx3-ubyte.gz in data_dir)")
	f.StringVar(&digitsTestLabels, "test-labels", "", "Test labels (default t10k-labels-idx1-ubyte.gz in data_dir)")
	f.IntVar(&digitsEpochs, "epochs", 5, "Training epochs")
	f.IntVar(&digitsBatchSize, "batch-size", 128, "Mini-batch size")
	f.IntVar(&digitsWorkers, "workers", 0, "Parallel gradient workers (default GOMAXPROCS)")
	f.IntVar(&digitsLimit, "limit", 0, "Use only the first N training and test images (0 = all)")
	f.Int64Var(&digitsSeed, "seed", 1, "Weight initialisation and shuffle seed")
	f.StringVarP(&digitsModel, "model", "m", "handwritten_model.json", "Where to save the trained model")

	digitsPredictCmd.Flags().StringVarP(&digitsModel, "model", "m", "handwritten_model.json", "Trained model file")

	digitsCmd.AddCommand(digitsTrainCmd, digitsPredictCmd)
	rootCmd.AddCommand(digitsCmd)
}

func loadIDXPair(imagesPath, labelsPath string) ([][]float64, []int, error) {
	images, shape, err := digits.LoadImages(imagesPath)
	if err != nil {
		return nil, nil, err
	}
	if shape.H != digits.ImageSize || shape.W != digits.ImageSize {
		return nil, nil, fmt.Errorf("%s holds %dx%d images, want %dx%d", imagesPath, shape.H, shape.W, digits.ImageSize, digits.ImageSize)
	}
	labels, err := digits.LoadLabels(labelsPath)
	if err != nil {
		return nil, nil, err
	}
	if len(labels) != len(images) {
		return nil, nil, fmt.Errorf("%s has %d labels for %d images", labelsPath, len(labels), len(images))
	}
	if digitsLimit > 0 && digitsLimit < len(images) {
		images, labels = images[:digitsLimit], labels[:digitsLimit]
	}
	return images, labels, nil
}

//nolint:errcheck // console output
func runDigitsTrain(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	trainX, trainY, err := loadIDXPair(
		dataPath(digitsTrainImages, "train-images-idx3-ubyte.gz"),
		dataPath(digitsTrainLabels, "train-labels-idx1-ubyte.gz"))
	if err != nil {
		return err
	}
	testX, testY, err := loadIDXPair(
		dataPath(digitsTestImages, "t10k-images-idx3-ubyte.gz"),
		dataPath(digitsTestLabels, "t10k-labels-idx1-ubyte.gz"))
	if err != nil {
		return err
	}

	net, err := digits.NewCNN(digitsSeed)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Training on %d images, validating on %d (%d parameters)\n", len(trainX), len(testX), net.ParamCount())

	ctx, stop := signalContext(cmd)
	defer stop()

	cfg := digits.TrainConfig{
		Epochs:    digitsEpochs,
		BatchSize: digitsBatchSize,
		Seed:      digitsSeed,
		Workers:   digitsWorkers,
	}
	var history []digits.EpochStats
	started := time.Now()
	err = net.Train(ctx, trainX, trainY, testX, testY, cfg, func(s digits.EpochStats) {
		history = append(history, s)
		fmt.Fprintf(out, "Epoch %d/%d - %s - loss: %.4f - accuracy: %.4f - val_loss: %.4f - val_accuracy: %.4f\n",
			s.Epoch, digitsEpochs, time.Since(started).Round(time.Second), s.Loss, s.Accuracy, s.ValLoss, s.ValAccuracy)
		started = time.Now()
	})
	if err != nil {
		return err
	}

	loss, acc, err := net.Evaluate(ctx, testX, testY, digitsWorkers)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Test loss: %.4f - Test accuracy: %.4f\n", loss, acc)
	if isVerbose() {
		observability.NewPrinter(out).PrintTrainingHistory(history)
	}

	if err := net.Save(digitsModel); err != nil {
		return err
	}
	fmt.Fprintf(out, "Model saved to %s\n", digitsModel)
	logger.Info("digit model trained", zap.String("path", digitsModel), zap.Float64("accuracy", acc))
	return nil
}

//nolint:errcheck // console output
func runDigitsPredict(cmd *cobra.Command, args []string) error {
	net, err := digits.Load(digitsModel)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	img, err := digits.LoadImage(args[0])
	if err != nil {
		return err
	}

	digit, probs, err := net.Predict(digits.PrepareImage(img))
	if err != nil {
		return err
	}
	logger.Debug("prediction", zap.String("image", filepath.Base(args[0])), zap.Float64s("probabilities", probs))
	fmt.Fprintf(cmd.OutOrStdout(), "Predicted digit: %d (confidence %.2f%%)\n", digit, probs[digit]*100)
	return nil
}

package jobqueue

import (
	"context"
	"fmt"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/datasync"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/secured"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/sms"
)

// Pipeline binds the three durable lanes to their domain handlers. Webhook
// controllers enqueue through it and return immediately; the lane workers
// drain into the SMS handler, the datasync processor and the SecureD
// processor.
type Pipeline struct {
	icell        *Queue
	secureD      *Queue
	secureDRetry *Queue
}

// NewPipeline creates the three lanes and registers their handlers. The
// SecureD processor's retry enqueuer is wired back to the retry lane, so
// correlation misses never occupy the fresh-traffic lane.
func NewPipeline(smsHandler *sms.Handler, dsProcessor *datasync.Processor, sdProcessor *secured.Processor, workers int) *Pipeline {
	p := &Pipeline{
		icell:        NewQueue(QueueICell, workers),
		secureD:      NewQueue(QueueSecureD, workers),
		secureDRetry: NewQueue(QueueSecureDRetry, workers),
	}

	p.icell.Handle(JobTypeProcessSMSRequest, func(ctx context.Context, job *Job) error {
		payload, err := SMSJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid sms job payload: %w", err)
		}
		// The carrier transaction runs on the first attempt only; the job
		// retries after a failed reply with the composed reply memoized in
		// its payload, so a flaky reply path never repeats a subscribe.
		if payload.Reply == "" {
			payload.Reply = smsHandler.ComposeReply(ctx, payload.Inbound())
			job.Payload = payload.ToMap()
		}
		return smsHandler.DeliverReply(ctx, payload.SenderAddress, payload.Reply)
	})

	p.icell.Handle(JobTypeProcessDatasyncRequest, func(ctx context.Context, job *Job) error {
		payload, err := DatasyncJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid datasync job payload: %w", err)
		}
		return dsProcessor.Process(ctx, payload.Request)
	})

	p.secureD.Handle(JobTypeProcessSecureD, func(ctx context.Context, job *Job) error {
		payload, err := SecureDJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid secure-d job payload: %w", err)
		}
		return sdProcessor.Process(ctx, payload.Request)
	})

	p.secureDRetry.Handle(JobTypeRetrySecureDCorrelation, func(ctx context.Context, job *Job) error {
		payload, err := SecureDRetryJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid secure-d retry payload: %w", err)
		}
		return sdProcessor.RetryCorrelation(ctx, payload.RetryJobID)
	})

	return p
}

// EnqueueSMSRequest parks one inbound SMS on the primary lane.
func (p *Pipeline) EnqueueSMSRequest(msg sms.InboundSMS) error {
	payload := SMSJobPayload{
		Message:         msg.Message,
		SenderAddress:   msg.SenderAddress,
		ReceiverAddress: msg.ReceiverAddress,
	}
	_, err := p.icell.Enqueue(JobTypeProcessSMSRequest, payload.ToMap())
	return err
}

// EnqueueDatasyncRequest parks one raw datasync record on the primary lane.
func (p *Pipeline) EnqueueDatasyncRequest(req datasync.Request) error {
	_, err := p.icell.Enqueue(JobTypeProcessDatasyncRequest, DatasyncJobPayload{Request: req}.ToMap())
	return err
}

// EnqueueSecureDNotification parks one partner notification on its own lane.
func (p *Pipeline) EnqueueSecureDNotification(req secured.Request) error {
	_, err := p.secureD.Enqueue(JobTypeProcessSecureD, SecureDJobPayload{Request: req}.ToMap())
	return err
}

// EnqueueRetryCorrelation parks a deferred correlation on the retry lane.
// Implements secured.RetryEnqueuer.
func (p *Pipeline) EnqueueRetryCorrelation(retryJobID uint) error {
	_, err := p.secureDRetry.Enqueue(JobTypeRetrySecureDCorrelation, SecureDRetryJobPayload{RetryJobID: retryJobID}.ToMap())
	return err
}

// Queues returns the lanes for lifecycle management and introspection.
func (p *Pipeline) Queues() []*Queue {
	return []*Queue{p.icell, p.secureD, p.secureDRetry}
}
